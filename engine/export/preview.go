package export

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/bmp"
)

// WritePreview stores img as a BMP file.
func WritePreview(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode preview: %w", err)
	}
	return f.Close()
}
