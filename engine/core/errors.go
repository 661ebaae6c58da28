package core

import (
	"errors"
)

var (
	ErrCancelled        = errors.New("slicing cancelled")
	ErrSurfaceBusy      = errors.New("offscreen surface is held by another export")
	ErrUnknownFormat    = errors.New("unknown export format")
	ErrLayerOutOfRange  = errors.New("layer index out of range")
	ErrCorruptRecord    = errors.New("corrupt run-length record")
	ErrSizeMismatch     = errors.New("image size does not match job size")
	ErrMeshNotFound     = errors.New("mesh not found")
	ErrUnsupportedMesh  = errors.New("unsupported mesh format")
	ErrInstanceNotFound = errors.New("instance not found")
	ErrInvalidVolume    = errors.New("invalid build volume")
)
