package provider

import (
	"io/fs"
	"time"

	"github.com/cuemby/acng/pkg/backup"
	"github.com/cuemby/acng/pkg/storage"
	"github.com/cuemby/acng/pkg/types"
	"github.com/cuemby/acng/pkg/volume"
)

// Deps are the host services shared by the built-in providers
type Deps struct {
	Store     storage.VolumeStore
	Volumes   *volume.Manager
	Catalog   *backup.Catalog
	Templates fs.FS

	// Optional; see Filesystem
	Fstab   string
	Mounted func(path string) (bool, error)

	// Optional; see Backup
	Now func() time.Time
}

// NewDefaultRegistry registers a provider for every resource type
func NewDefaultRegistry(d Deps) *Registry {
	fsp := Filesystem{Fstab: d.Fstab, Mounted: d.Mounted}

	r := NewRegistry()
	r.Register(types.ResourceVolume, Volume{Store: d.Store, Volumes: d.Volumes})
	r.Register(types.ResourceBackup, Backup{Store: d.Store, Volumes: d.Volumes, Catalog: d.Catalog, Now: d.Now})
	r.Register(types.ResourceFilesystem, fsp)
	r.Register(types.ResourceMount, Mount{Filesystem: fsp})
	r.Register(types.ResourceDirectory, Directory{})
	r.Register(types.ResourceLink, Link{})
	r.Register(types.ResourceExecute, Execute{})
	r.Register(types.ResourceTemplate, Template{FS: d.Templates})
	return r
}
