// Package backup keeps point-in-time snapshots of volumes, grouped by lineage.
//
// Snapshots live under <root>/<lineage>/<unix-timestamp>.img.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/acng/pkg/types"
)

// DefaultRoot is where snapshots are kept unless configured otherwise
const DefaultRoot = "/var/lib/acng/backups"

const snapshotExt = ".img"

// ErrNoBackup is returned when no snapshot matches a restore request
var ErrNoBackup = errors.New("no backup found")

var lineagePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Catalog indexes the snapshots under a root directory
type Catalog struct {
	root string
}

// NewCatalog creates a catalog rooted at root
func NewCatalog(root string) *Catalog {
	if root == "" {
		root = DefaultRoot
	}
	return &Catalog{root: root}
}

// Root returns the catalog directory
func (c *Catalog) Root() string {
	return c.root
}

// ValidateLineage rejects lineage names that are not safe path components
func ValidateLineage(lineage string) error {
	if !lineagePattern.MatchString(lineage) {
		return fmt.Errorf("invalid backup lineage %q", lineage)
	}
	return nil
}

// List returns the snapshots of a lineage, oldest first. A lineage with no
// directory has no snapshots.
func (c *Catalog) List(lineage string) ([]*types.Snapshot, error) {
	if err := ValidateLineage(lineage); err != nil {
		return nil, err
	}

	dir := filepath.Join(c.root, lineage)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lineage %s: %w", lineage, err)
	}

	var snaps []*types.Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), snapshotExt), 10, 64)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat snapshot %s: %w", e.Name(), err)
		}
		snaps = append(snaps, &types.Snapshot{
			Lineage:   lineage,
			Timestamp: ts,
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Timestamp < snaps[j].Timestamp
	})
	return snaps, nil
}

// Find selects the snapshot to restore: the latest one when timestamp is nil,
// otherwise the newest one taken at or before *timestamp.
func (c *Catalog) Find(lineage string, timestamp *int64) (*types.Snapshot, error) {
	snaps, err := c.List(lineage)
	if err != nil {
		return nil, err
	}

	for i := len(snaps) - 1; i >= 0; i-- {
		if timestamp == nil || snaps[i].Timestamp <= *timestamp {
			return snaps[i], nil
		}
	}

	if timestamp != nil {
		return nil, fmt.Errorf("%w: lineage %s at or before %d", ErrNoBackup, lineage, *timestamp)
	}
	return nil, fmt.Errorf("%w: lineage %s", ErrNoBackup, lineage)
}

// Create copies source into a new snapshot taken at the given time
func (c *Catalog) Create(lineage, source string, at time.Time) (*types.Snapshot, error) {
	if err := ValidateLineage(lineage); err != nil {
		return nil, err
	}

	dir := filepath.Join(c.root, lineage)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lineage directory: %w", err)
	}

	ts := at.Unix()
	path := filepath.Join(dir, strconv.FormatInt(ts, 10)+snapshotExt)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("snapshot %d already exists in lineage %s", ts, lineage)
	}

	in, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	size, err := io.Copy(tmp, in)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return &types.Snapshot{Lineage: lineage, Timestamp: ts, Path: path, Size: size}, nil
}

// Cleanup removes all but the keepLast newest snapshots and returns the
// removed ones. keepLast below 1 is rejected.
func (c *Catalog) Cleanup(lineage string, keepLast int) ([]*types.Snapshot, error) {
	if keepLast < 1 {
		return nil, fmt.Errorf("keep_last must be at least 1, got %d", keepLast)
	}

	snaps, err := c.List(lineage)
	if err != nil {
		return nil, err
	}
	if len(snaps) <= keepLast {
		return nil, nil
	}

	stale := snaps[:len(snaps)-keepLast]
	for _, s := range stale {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove snapshot %s: %w", s.Path, err)
		}
	}
	return stale, nil
}
