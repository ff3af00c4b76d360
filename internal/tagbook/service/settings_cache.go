package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// MaxSettingsRefresh bounds how long a classification may run on settings
// changed by another process.
const MaxSettingsRefresh = 30 * time.Second

// SettingsCache serves a settings snapshot to every classification.
// Updates through this cache take effect immediately; updates made
// elsewhere are picked up within the refresh interval.
type SettingsCache struct {
	store    store.SettingsStore
	refresh  time.Duration
	defaults types.Settings
	now      func() time.Time
	group    singleflight.Group

	mu       sync.RWMutex
	cur      types.Settings
	loadedAt time.Time
	loaded   bool
	gen      uint64
}

func NewSettingsCache(st store.SettingsStore, refresh time.Duration) *SettingsCache {
	if refresh <= 0 || refresh > MaxSettingsRefresh {
		refresh = 5 * time.Second
	}
	return &SettingsCache{
		store:    st,
		refresh:  refresh,
		defaults: types.DefaultSettings(),
		now:      time.Now,
	}
}

// Get returns the current snapshot, reloading it when older than the
// refresh interval.  Concurrent reloads collapse into one store read.
func (c *SettingsCache) Get(ctx context.Context) (types.Settings, error) {
	c.mu.RLock()
	if c.loaded && c.now().Sub(c.loadedAt) < c.refresh {
		s := c.cur
		c.mu.RUnlock()
		return s, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.group.Do("settings", func() (any, error) {
		s, err := c.store.Load(ctx)
		if errors.Is(err, store.ErrNotFound) {
			s, err = c.defaults, nil
		}
		if err != nil {
			return types.Settings{}, fmt.Errorf("load settings: %w", err)
		}
		c.mu.Lock()
		// An Update that landed while we were reading wins; after an
		// Invalidate the read is used once but not cached.
		switch {
		case c.gen == gen:
			c.cur, c.loadedAt, c.loaded = s, c.now(), true
		case c.loaded:
			s = c.cur
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return types.Settings{}, err
	}
	return v.(types.Settings), nil
}

// Update validates and persists s, then replaces the cached snapshot so
// the next classification sees it.
func (c *SettingsCache) Update(ctx context.Context, s types.Settings) (types.Settings, error) {
	if err := validateStruct(s); err != nil {
		return types.Settings{}, err
	}
	s.UpdatedAt = c.now().UTC()
	if err := c.store.Save(ctx, s); err != nil {
		return types.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	c.mu.Lock()
	c.cur, c.loadedAt, c.loaded = s, c.now(), true
	c.gen++
	c.mu.Unlock()
	return s, nil
}

// Invalidate forces the next Get to reload from the store.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.gen++
	c.mu.Unlock()
}
