// Package storage persists the client's key/value state across restarts.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Persisted keys.
const (
	KeyToken     = "userToken"
	KeyUser      = "user"
	KeyUsingMock = "isUsingMock"
	KeyTasks     = "tasks"
)

// SessionKeys are written and purged together.
var SessionKeys = []string{KeyToken, KeyUser, KeyUsingMock}

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("key not found")

// Store is a string key/value store. SetMany and DeleteMany apply all keys
// or none.
type Store interface {
	Get(key string) (string, error)
	SetMany(values map[string]string) error
	DeleteMany(keys ...string) error
	Close() error
}

// Kinds accepted by Open.
const (
	KindFile   = "file"
	KindBadger = "badger"
	KindMemory = "memory"
)

const (
	stateFile = "state.json"
	badgerDir = "state.db"
)

// Open returns the store of the given kind rooted at dir.
func Open(kind, dir string, logger *slog.Logger) (Store, error) {
	switch kind {
	case "", KindFile:
		return NewFileStore(filepath.Join(dir, stateFile)), nil
	case KindBadger:
		cfg := DefaultBadgerConfig()
		cfg.Path = filepath.Join(dir, badgerDir)
		cfg.Logger = logger
		return OpenBadger(cfg)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q (want file, badger or memory)", kind)
	}
}

// Lookup is Get with absence folded into ok.
func Lookup(s Store, key string) (string, bool, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
