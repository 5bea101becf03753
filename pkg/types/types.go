package types

import (
	"fmt"
	"time"
)

// ResourceType identifies the provider that converges a resource
type ResourceType string

const (
	ResourceVolume     ResourceType = "rightscale_volume"
	ResourceBackup     ResourceType = "rightscale_backup"
	ResourceFilesystem ResourceType = "filesystem"
	ResourceMount      ResourceType = "mount"
	ResourceDirectory  ResourceType = "directory"
	ResourceLink       ResourceType = "link"
	ResourceExecute    ResourceType = "execute"
	ResourceTemplate   ResourceType = "template"
)

// Action is the desired-state verb applied to a resource
type Action string

const (
	ActionNothing Action = "nothing"
	ActionCreate  Action = "create"
	ActionDelete  Action = "delete"
	ActionAttach  Action = "attach"
	ActionRestore Action = "restore"
	ActionCleanup Action = "cleanup"
	ActionEnable  Action = "enable"
	ActionMount   Action = "mount"
	ActionRun     Action = "run"
)

// Resource is a single declared piece of desired host state
type Resource struct {
	Type   ResourceType `yaml:"type" json:"type"`
	Action Action       `yaml:"action" json:"action"`
	Name   string       `yaml:"name" json:"name"`

	Volume     *VolumeSpec     `yaml:"volume,omitempty" json:"volume,omitempty"`
	Backup     *BackupSpec     `yaml:"backup,omitempty" json:"backup,omitempty"`
	Filesystem *FilesystemSpec `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	Directory  *DirectorySpec  `yaml:"directory,omitempty" json:"directory,omitempty"`
	Link       *LinkSpec       `yaml:"link,omitempty" json:"link,omitempty"`
	Execute    *ExecuteSpec    `yaml:"execute,omitempty" json:"execute,omitempty"`
	Template   *TemplateSpec   `yaml:"template,omitempty" json:"template,omitempty"`

	// Notifies lists resource keys ("execute[restart]") to run after this
	// resource is updated, at the end of the run.
	Notifies []Notification `yaml:"notifies,omitempty" json:"notifies,omitempty"`
}

// Key returns the "type[name]" form used in logs and notifications
func (r *Resource) Key() string {
	return ResourceKey(r.Type, r.Name)
}

// ResourceKey formats a resource identity
func ResourceKey(t ResourceType, name string) string {
	return fmt.Sprintf("%s[%s]", t, name)
}

// Notification is a delayed action on another resource
type Notification struct {
	Action   Action `yaml:"action" json:"action"`
	Resource string `yaml:"resource" json:"resource"`
}

// VolumeSpec holds the parameters of a block volume
type VolumeSpec struct {
	Nickname string `yaml:"nickname" json:"nickname"`
	Size     int    `yaml:"size" json:"size"` // GiB

	// Options is never nil; an unset iops leaves it empty
	Options map[string]int `yaml:"options" json:"options"`
}

// BackupSpec holds the parameters of a backup operation
type BackupSpec struct {
	Nickname string `yaml:"nickname" json:"nickname"`
	Lineage  string `yaml:"lineage" json:"lineage"`

	// Timestamp pins a restore to a point in time; nil means latest
	Timestamp *int64 `yaml:"timestamp" json:"timestamp"`
	Size      int    `yaml:"size" json:"size"` // GiB

	// Options is never nil, like VolumeSpec.Options
	Options  map[string]int `yaml:"options" json:"options"`
	KeepLast int            `yaml:"keep_last,omitempty" json:"keep_last,omitempty"`
}

// FilesystemSpec describes a filesystem on a volume or device
type FilesystemSpec struct {
	// Nickname resolves the device through rightscale_volume.<nickname>.device
	Nickname    string `yaml:"nickname,omitempty" json:"nickname,omitempty"`
	Device      string `yaml:"device,omitempty" json:"device,omitempty"`
	FSType      string `yaml:"fstype" json:"fstype"`
	MkfsOptions string `yaml:"mkfs_options,omitempty" json:"mkfs_options,omitempty"`
	MountPoint  string `yaml:"mount" json:"mount"`
}

// DirectorySpec describes a directory
type DirectorySpec struct {
	Recursive bool   `yaml:"recursive" json:"recursive"`
	Mode      uint32 `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// LinkSpec describes a symbolic link at the resource name
type LinkSpec struct {
	To string `yaml:"to" json:"to"`
}

// ExecuteSpec describes a command and its guards
type ExecuteSpec struct {
	Command string `yaml:"command" json:"command"`
	NotIf   string `yaml:"not_if,omitempty" json:"not_if,omitempty"`
	OnlyIf  string `yaml:"only_if,omitempty" json:"only_if,omitempty"`
}

// TemplateSpec describes a rendered file at the resource name
type TemplateSpec struct {
	Source    string            `yaml:"source" json:"source"`
	Mode      uint32            `yaml:"mode,omitempty" json:"mode,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
}

// Plan is the ordered resource list produced by a recipe
type Plan struct {
	Recipe    string      `yaml:"recipe" json:"recipe"`
	Resources []*Resource `yaml:"resources" json:"resources"`
}

// Add appends a resource and returns it for further configuration
func (p *Plan) Add(r *Resource) *Resource {
	p.Resources = append(p.Resources, r)
	return r
}

// Find returns the first resource with the given type, action and name
func (p *Plan) Find(t ResourceType, action Action, name string) *Resource {
	for _, r := range p.Resources {
		if r.Type == t && r.Action == action && r.Name == name {
			return r
		}
	}
	return nil
}

// Lookup returns the first resource with the given key, regardless of action
func (p *Plan) Lookup(key string) *Resource {
	for _, r := range p.Resources {
		if r.Key() == key {
			return r
		}
	}
	return nil
}

// Volume represents a provisioned block volume
type Volume struct {
	ID           string
	Nickname     string
	Driver       string         // "local"
	Size         int            // GiB
	Options      map[string]int // iops, ...
	ImagePath    string         // backing file for the local driver
	Device       string         // block device once attached
	Lineage      string         // set when restored from a backup
	RestoredFrom string         // snapshot path used for the restore
	CreatedAt    time.Time
	AttachedAt   time.Time
}

// Snapshot is a single backup in a lineage
type Snapshot struct {
	Lineage   string
	Timestamp int64
	Path      string
	Size      int64
}

// ResourceStatus is the outcome of converging one resource
type ResourceStatus string

const (
	StatusUpdated  ResourceStatus = "updated"
	StatusUpToDate ResourceStatus = "up-to-date"
	StatusSkipped  ResourceStatus = "skipped"
	StatusFailed   ResourceStatus = "failed"
	StatusWhyRun   ResourceStatus = "would-update"
)

// ResourceResult records one resource in a run
type ResourceResult struct {
	Key      string
	Action   Action
	Status   ResourceStatus
	Message  string
	Duration time.Duration
}

// Run records one convergence
type Run struct {
	ID         string
	Recipe     string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Resources  []ResourceResult
	Error      string
}

// Updated returns how many resources changed the host
func (r *Run) Updated() int {
	n := 0
	for _, res := range r.Resources {
		if res.Status == StatusUpdated {
			n++
		}
	}
	return n
}
