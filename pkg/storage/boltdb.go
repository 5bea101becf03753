package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/acng/pkg/types"
	bolt "go.etcd.io/bbolt"
)

const (
	// DBFile is the database file name inside the data directory
	DBFile = "acng.db"

	// LockTimeout bounds the wait for another acng process holding the database
	LockTimeout = 5 * time.Second

	// DefaultRunHistory is how many runs SaveRun keeps
	DefaultRunHistory = 200
)

var (
	volumesBucket = []byte("volumes")
	runsBucket    = []byte("runs")
)

// BoltStore is the bbolt-backed Store
type BoltStore struct {
	db *bolt.DB

	// RunHistory caps the runs bucket; zero or less keeps everything
	RunHistory int
}

// NewBoltStore opens (or creates) <dataDir>/acng.db
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, DBFile)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: LockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.Update(ensureBuckets(volumesBucket, runsBucket)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, RunHistory: DefaultRunHistory}, nil
}

func ensureBuckets(names ...[]byte) func(*bolt.Tx) error {
	return func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	}
}

// Close releases the database lock
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func putJSON(tx *bolt.Tx, bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", bucket, key, err)
	}
	return tx.Bucket(bucket).Put(key, data)
}

func decode[T any](bucket, key, data []byte) (*T, error) {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", bucket, key, err)
	}
	return out, nil
}

// SaveVolume inserts or replaces the record for volume.Nickname
func (s *BoltStore) SaveVolume(volume *types.Volume) error {
	if volume.Nickname == "" {
		return fmt.Errorf("failed to save volume: empty nickname")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, volumesBucket, []byte(volume.Nickname), volume)
	})
}

// GetVolume returns ErrNotFound when nickname was never saved
func (s *BoltStore) GetVolume(nickname string) (vol *types.Volume, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		key := []byte(nickname)
		data := tx.Bucket(volumesBucket).Get(key)
		if data == nil {
			return fmt.Errorf("volume %s: %w", nickname, ErrNotFound)
		}
		vol, err = decode[types.Volume](volumesBucket, key, data)
		return err
	})
	return vol, err
}

// ListVolumes returns volumes ordered by nickname
func (s *BoltStore) ListVolumes() (volumes []*types.Volume, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(volumesBucket).ForEach(func(k, v []byte) error {
			vol, err := decode[types.Volume](volumesBucket, k, v)
			if err != nil {
				return err
			}
			volumes = append(volumes, vol)
			return nil
		})
	})
	return volumes, err
}

// DeleteVolume forgets a volume. Deleting an unknown nickname is not an error.
func (s *BoltStore) DeleteVolume(nickname string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(volumesBucket).Delete([]byte(nickname))
	})
}

// runKey sorts chronologically, so the newest run is the last key
func runKey(run *types.Run) []byte {
	return []byte(fmt.Sprintf("%020d-%s", run.StartedAt.UnixNano(), run.ID))
}

// SaveRun appends run to the history and drops the oldest entries beyond
// RunHistory.
func (s *BoltStore) SaveRun(run *types.Run) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putJSON(tx, runsBucket, runKey(run), run); err != nil {
			return err
		}
		return trimOldest(tx.Bucket(runsBucket), s.RunHistory)
	})
}

func trimOldest(b *bolt.Bucket, keep int) error {
	if keep <= 0 {
		return nil
	}
	c := b.Cursor()
	excess := -keep
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		excess++
	}
	for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
		if err := c.Delete(); err != nil {
			return err
		}
		excess--
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *BoltStore) ListRuns(limit int) (runs []*types.Run, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) == limit {
				break
			}
			run, err := decode[types.Run](runsBucket, k, v)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}
