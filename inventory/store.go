// Package inventory persists discovery inventories to local disk.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/cloudcarto/surveyor/types"
)

// Bucket names in bbolt
var (
	bucketInventories = []byte("inventories")
	bucketMeta        = []byte("meta")
)

// Store keeps full inventory documents in bbolt and a btree index of
// their metadata in memory for time-ordered listing.
type Store struct {
	mu sync.RWMutex

	// In-memory index for fast listing, ordered by (timestamp, id)
	index *btree.BTreeG[*InventoryRef]
	byID  map[string]*InventoryRef

	// On-disk storage
	db *bbolt.DB

	// Path to storage directory
	dir string
}

// InventoryRef is the index entry for a stored inventory.
type InventoryRef struct {
	ID             string
	ProjectID      string
	Timestamp      time.Time
	TotalResources int
}

func refLess(a, b *InventoryRef) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// NewStore opens (or creates) the store under dir.
func NewStore(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "surveyor.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketInventories, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		index: btree.NewG[*InventoryRef](32, refLess),
		byID:  make(map[string]*InventoryRef),
		db:    db,
		dir:   dir,
	}

	if err := store.rebuildIndex(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	return store, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveInventory stores a completed inventory. Saving the same ID twice
// overwrites the previous document.
func (s *Store) SaveInventory(_ context.Context, inv *types.InfrastructureInventory) error {
	if inv == nil || inv.ID == "" {
		return fmt.Errorf("inventory must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory %s: %w", inv.ID, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInventories)
		if err := bucket.Put([]byte(inv.ID), value); err != nil {
			return err
		}

		metaBucket := tx.Bucket(bucketMeta)
		return metaBucket.Put([]byte("last_saved"), []byte(inv.Timestamp.Format(time.RFC3339Nano)))
	})
	if err != nil {
		return err
	}

	s.insertRef(&InventoryRef{
		ID:             inv.ID,
		ProjectID:      inv.ProjectID,
		Timestamp:      inv.Timestamp,
		TotalResources: inv.Summary.TotalResources,
	})

	return nil
}

// insertRef replaces any existing entry for the same ID. Callers hold
// the write lock.
func (s *Store) insertRef(ref *InventoryRef) {
	if old, ok := s.byID[ref.ID]; ok {
		s.index.Delete(old)
	}
	s.index.ReplaceOrInsert(ref)
	s.byID[ref.ID] = ref
}

// GetInventory loads a stored inventory by ID.
func (s *Store) GetInventory(id string) (*types.InfrastructureInventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inv *types.InfrastructureInventory

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInventories)
		value := bucket.Get([]byte(id))
		if value == nil {
			return fmt.Errorf("inventory %s not found", id)
		}

		inv = &types.InfrastructureInventory{}
		return json.Unmarshal(value, inv)
	})
	if err != nil {
		return nil, err
	}

	return inv, nil
}

// ListInventories returns index entries newest-first, optionally
// filtered by project. A limit of 0 means no limit.
func (s *Store) ListInventories(projectID string, limit int) []InventoryRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []InventoryRef

	s.index.Descend(func(ref *InventoryRef) bool {
		if projectID != "" && ref.ProjectID != projectID {
			return true
		}
		refs = append(refs, *ref)
		return limit == 0 || len(refs) < limit
	})

	return refs
}

// Latest returns the most recent inventory for a project, or an error
// when none is stored.
func (s *Store) Latest(projectID string) (*types.InfrastructureInventory, error) {
	refs := s.ListInventories(projectID, 1)
	if len(refs) == 0 {
		return nil, fmt.Errorf("no inventories stored for project %q", projectID)
	}
	return s.GetInventory(refs[0].ID)
}

// DeleteInventory removes a stored inventory. Deleting an unknown ID
// is a no-op.
func (s *Store) DeleteInventory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketInventories).Delete([]byte(id))
	})
	if err != nil {
		return err
	}

	if ref, ok := s.byID[id]; ok {
		s.index.Delete(ref)
		delete(s.byID, id)
	}
	return nil
}

// PruneOlderThan removes inventories whose timestamp is older than
// maxAge and returns how many were deleted.
func (s *Store) PruneOlderThan(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*InventoryRef
	s.index.Ascend(func(ref *InventoryRef) bool {
		if ref.Timestamp.Before(cutoff) {
			stale = append(stale, ref)
			return true
		}
		// index is time-ordered, everything after is newer
		return false
	})

	if len(stale) == 0 {
		return 0, nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInventories)
		for _, ref := range stale {
			if err := bucket.Delete([]byte(ref.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, ref := range stale {
		s.index.Delete(ref)
		delete(s.byID, ref.ID)
	}

	return len(stale), nil
}

func (s *Store) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInventories)

		return bucket.ForEach(func(_, value []byte) error {
			var inv types.InfrastructureInventory
			if err := json.Unmarshal(value, &inv); err != nil {
				return err
			}

			s.insertRef(&InventoryRef{
				ID:             inv.ID,
				ProjectID:      inv.ProjectID,
				Timestamp:      inv.Timestamp,
				TotalResources: inv.Summary.TotalResources,
			})
			return nil
		})
	})
}
