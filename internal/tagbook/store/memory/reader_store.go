package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type ReaderStore struct {
	mu      sync.RWMutex
	readers map[string]types.Reader
}

func NewReaderStore() *ReaderStore {
	return &ReaderStore{readers: make(map[string]types.Reader)}
}

func (s *ReaderStore) MarkSeen(_ context.Context, deviceID, deviceType string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.readers[deviceID]
	if !ok {
		r = types.Reader{DeviceID: deviceID, FirstSeenAt: t}
	}
	if deviceType != "" {
		r.DeviceType = deviceType
	}
	r.LastSeenAt = t
	s.readers[deviceID] = r
	return nil
}

func (s *ReaderStore) List(_ context.Context) ([]types.Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Reader, 0, len(s.readers))
	for _, r := range s.readers {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}
