package separation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/cargo-match/internal/scan"
)

const (
	itemsBucket = "items"
	runsBucket  = "runs"
)

var (
	// ErrItemNotFound is returned when no item has the given id
	ErrItemNotFound = errors.New("item not found")

	// ErrRunNotFound is returned when no run has the given id
	ErrRunNotFound = errors.New("run not found")
)

// DB defines the persistence of scan items and reconciliation runs
type DB interface {
	// SaveItem inserts or overwrites an item
	SaveItem(item scan.Item) error

	// ReplaceItem overwrites an item only if it still exists
	ReplaceItem(item scan.Item) error

	// GetItem retrieves an item by ID
	GetItem(id string) (scan.Item, error)

	// ListItems returns all items in id order
	ListItems() ([]scan.Item, error)

	// DeleteItem removes an item
	DeleteItem(id string) error

	// ClearItems removes every item
	ClearItems() error

	// SaveRun stores a reconciliation run
	SaveRun(run *Run) error

	// GetRun retrieves a run by ID
	GetRun(id string) (*Run, error)

	// ListRuns returns all runs in id order
	ListRuns() ([]*Run, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements DB using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{itemsBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) SaveItem(item scan.Item) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return putItem(tx.Bucket([]byte(itemsBucket)), item)
	})
}

// ReplaceItem is the write-back path of asynchronous extraction. The
// existence check and the write share one transaction, so an item deleted
// while its OCR call was in flight stays deleted.
func (b *BoltDB) ReplaceItem(item scan.Item) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemsBucket))
		if bucket.Get([]byte(item.ID())) == nil {
			return fmt.Errorf("%w: %s", ErrItemNotFound, item.ID())
		}
		return putItem(bucket, item)
	})
}

func putItem(bucket *bbolt.Bucket, item scan.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	return bucket.Put([]byte(item.ID()), data)
}

func (b *BoltDB) GetItem(id string) (scan.Item, error) {
	var item scan.Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(itemsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return json.Unmarshal(data, &item)
	})
	if err != nil {
		return scan.Item{}, err
	}
	return item, nil
}

// ListItems returns items in key order. Keys are time-ordered ids, so this is
// insertion order.
func (b *BoltDB) ListItems() ([]scan.Item, error) {
	items := make([]scan.Item, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(itemsBucket)).ForEach(func(k, v []byte) error {
			var item scan.Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item %s: %w", k, err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (b *BoltDB) DeleteItem(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(itemsBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

func (b *BoltDB) ClearItems() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(itemsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(itemsBucket))
		return err
	})
}

func (b *BoltDB) SaveRun(run *Run) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshaling run: %w", err)
		}
		return tx.Bucket([]byte(runsBucket)).Put([]byte(run.ID), data)
	})
}

func (b *BoltDB) GetRun(id string) (*Run, error) {
	var run *Run
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (b *BoltDB) ListRuns() ([]*Run, error) {
	runs := make([]*Run, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("unmarshaling run %s: %w", k, err)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
