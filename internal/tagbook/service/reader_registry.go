package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type ReaderRegistry struct {
	store store.ReaderStore
}

func NewReaderRegistry(st store.ReaderStore) *ReaderRegistry {
	return &ReaderRegistry{store: st}
}

func (r *ReaderRegistry) NoteSeen(ctx context.Context, deviceID, deviceType string, at time.Time) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, deviceID, strings.TrimSpace(deviceType), at.UTC())
}

func (r *ReaderRegistry) List(ctx context.Context) ([]types.Reader, error) {
	return r.store.List(ctx)
}
