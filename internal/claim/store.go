package claim

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when no claim has the requested id
	ErrNotFound = errors.New("claim not found")
	// ErrDuplicateID is returned when appending a claim whose id is already stored
	ErrDuplicateID = errors.New("claim id already exists")
)

// ListOptions narrows a List call
type ListOptions struct {
	// OwnerEmail restricts results to claims submitted by this user when set
	OwnerEmail string
}

// Store defines the interface for claim persistence.
// Every call re-reads the backing store, so writes from other processes are visible.
type Store interface {
	// Append adds a new claim. It fails with ErrDuplicateID if the id is taken.
	Append(ctx context.Context, claim *ClaimRecord) error

	// List returns stored claims ordered by timestamp, oldest first
	List(ctx context.Context, opts ListOptions) ([]*ClaimRecord, error)

	// Get retrieves a claim by id or returns ErrNotFound
	Get(ctx context.Context, id string) (*ClaimRecord, error)

	// Delete removes a claim by id or returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// Close releases the backing store
	Close() error
}

// getFromList scans a full listing for id
func getFromList(ctx context.Context, s Store, id string) (*ClaimRecord, error) {
	claims, err := s.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	for _, c := range claims {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// filterAndSort applies opts and orders claims by timestamp, then id
func filterAndSort(claims []*ClaimRecord, opts ListOptions) []*ClaimRecord {
	out := make([]*ClaimRecord, 0, len(claims))
	for _, c := range claims {
		if opts.OwnerEmail != "" && c.OwnerEmail != opts.OwnerEmail {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
