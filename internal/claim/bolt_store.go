package claim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const claimsBucket = "claims"

// BoltStore implements the Store interface using BoltDB.
// Each claim is one JSON document keyed by id; writes run in serialized bbolt transactions.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(claimsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Append saves a new claim
func (b *BoltStore) Append(ctx context.Context, claim *ClaimRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(claimsBucket))
		if bucket.Get([]byte(claim.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateID, claim.ID)
		}
		data, err := json.Marshal(claim)
		if err != nil {
			return fmt.Errorf("marshaling claim: %w", err)
		}
		return bucket.Put([]byte(claim.ID), data)
	})
}

// Get retrieves a claim by id
func (b *BoltStore) Get(ctx context.Context, id string) (*ClaimRecord, error) {
	var claim *ClaimRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(claimsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &claim)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// List returns all claims matching opts
func (b *BoltStore) List(ctx context.Context, opts ListOptions) ([]*ClaimRecord, error) {
	claims := make([]*ClaimRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(claimsBucket)).ForEach(func(k, v []byte) error {
			var claim ClaimRecord
			if err := json.Unmarshal(v, &claim); err != nil {
				return fmt.Errorf("unmarshaling claim %s: %w", k, err)
			}
			claims = append(claims, &claim)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return filterAndSort(claims, opts), nil
}

// Delete removes a claim
func (b *BoltStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(claimsBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltStore) Close() error {
	return b.db.Close()
}
