package testutil

import (
	"errors"
	"sync"

	"tasktrack/internal/storage"
)

// ErrStoreDown is returned by a FlakyStore that has been told to fail.
var ErrStoreDown = errors.New("store unavailable")

// FlakyStore wraps a storage.Memory and fails writes on demand.
type FlakyStore struct {
	*storage.Memory

	mu       sync.Mutex
	failSet  bool
	failDel  bool
	setCalls int
	delCalls int
}

// NewFlakyStore returns an empty FlakyStore.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Memory: storage.NewMemory()}
}

// FailWrites makes SetMany and DeleteMany fail until called with false.
func (s *FlakyStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = fail
	s.failDel = fail
}

// FailDeletes makes only DeleteMany fail.
func (s *FlakyStore) FailDeletes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDel = fail
}

// SetCalls returns how many times SetMany was called.
func (s *FlakyStore) SetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

func (s *FlakyStore) SetMany(values map[string]string) error {
	s.mu.Lock()
	s.setCalls++
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return ErrStoreDown
	}
	return s.Memory.SetMany(values)
}

func (s *FlakyStore) DeleteMany(keys ...string) error {
	s.mu.Lock()
	s.delCalls++
	fail := s.failDel
	s.mu.Unlock()
	if fail {
		return ErrStoreDown
	}
	return s.Memory.DeleteMany(keys...)
}
