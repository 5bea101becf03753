package storage

import (
	"errors"

	"github.com/cuemby/acng/pkg/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// VolumeStore persists volumes keyed by nickname
type VolumeStore interface {
	SaveVolume(volume *types.Volume) error
	GetVolume(nickname string) (*types.Volume, error)
	ListVolumes() ([]*types.Volume, error)
	DeleteVolume(nickname string) error
}

// RunStore persists convergence history
type RunStore interface {
	SaveRun(run *types.Run) error
	ListRuns(limit int) ([]*types.Run, error)
}

// Store defines the interface for host state storage
type Store interface {
	VolumeStore
	RunStore

	// Utility
	Close() error
}
