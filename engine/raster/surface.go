package raster

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/stratum/engine/core"
)

// DefaultOwner holds the surface when no export is running.
const DefaultOwner = "viewport"

// Surface is the single offscreen drawing context shared between the preview
// and the exports. An export makes it current for its whole run and hands it
// back through the returned restore function.
type Surface struct {
	mutex sync.Mutex
	owner string
	held  bool
}

func NewSurface() *Surface {
	return &Surface{owner: DefaultOwner}
}

// Owner returns the name of the current holder.
func (s *Surface) Owner() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.owner
}

// MakeCurrent hands the surface to owner. The returned function gives it back
// to the previous owner and may be called more than once.
func (s *Surface) MakeCurrent(owner string) (func(), error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.held {
		return nil, fmt.Errorf("surface held by %q: %w", s.owner, core.ErrSurfaceBusy)
	}
	previous := s.owner
	s.owner = owner
	s.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mutex.Lock()
			s.owner = previous
			s.held = false
			s.mutex.Unlock()
		})
	}, nil
}
