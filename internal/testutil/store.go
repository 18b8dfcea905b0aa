package testutil

import (
	"context"
	"errors"
	"time"
)

// ErrStoreDown is the failure every FailingStore operation reports.
var ErrStoreDown = errors.New("store down")

// FailingStore is a cache.Store whose every operation fails, simulating an
// unreachable backing store.
type FailingStore struct{}

// Get implements cache.Store.
func (FailingStore) Get(context.Context, string) ([]byte, error) { return nil, ErrStoreDown }

// Set implements cache.Store.
func (FailingStore) Set(context.Context, string, []byte, time.Duration) error { return ErrStoreDown }

// Delete implements cache.Store.
func (FailingStore) Delete(context.Context, string) error { return ErrStoreDown }
