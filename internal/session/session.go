// Package session owns the signed-in state: the credential, the user record
// and which backend variant is active. Persisted and in-memory state always
// change together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"tasktrack/internal/apierror"
	"tasktrack/internal/logging"
	"tasktrack/internal/service"
	"tasktrack/internal/storage"
)

// State is the session's position in its lifecycle.
type State int

const (
	// Bootstrapping is the window before persisted state has been read.
	Bootstrapping State = iota
	// Unauthenticated means no usable credential.
	Unauthenticated
	// Authenticated means a credential and user are held.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// ErrNotSignedIn is returned by operations that need an active session.
var ErrNotSignedIn = errors.New("not signed in")

// Snapshot is a copy of the observable session state.
type Snapshot struct {
	State     State
	User      *service.User
	UsingMock bool
	Loading   bool
	Error     string
}

// Authenticated reports whether the snapshot holds a session.
func (s Snapshot) Authenticated() bool { return s.State == Authenticated }

// Store is the session state machine.
type Store struct {
	kv     storage.Store
	real   service.Service
	mock   service.Service
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	user      *service.User
	usingMock bool
	loading   bool
	errMsg    string
	subs      []chan Snapshot
}

// New returns a Store in the Bootstrapping state. real serves SignIn and
// Register; mock serves SignInDemo.
func New(kv storage.Store, real, mock service.Service, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		real:   real,
		mock:   mock,
		logger: logging.OrDiscard(logger),
		state:  Bootstrapping,
	}
}

// Bootstrap reads the persisted session and decides whether it is still
// active. A session the backend explicitly rejects is purged; one that cannot
// be validated at all is kept.
func (s *Store) Bootstrap(ctx context.Context) Snapshot {
	s.begin()

	tok, user, usingMock, err := s.readPersisted()
	if err != nil {
		s.logger.Warn("failed to read persisted session", "error", err)
		return s.settle(Unauthenticated, "", nil, false, err)
	}
	if tok == "" || user == nil {
		return s.settle(Unauthenticated, "", nil, false, nil)
	}

	svc := s.real
	if usingMock {
		svc = s.mock
	}

	valid, err := svc.ValidateToken(ctx)
	switch {
	case err != nil:
		s.logger.Warn("session validation failed, keeping cached session", "error", err)
		return s.settle(Authenticated, tok, user, usingMock, nil)
	case !valid:
		s.logger.Debug("persisted session rejected, purging")
		if err := s.kv.DeleteMany(storage.SessionKeys...); err != nil {
			s.logger.Warn("failed to purge session", "error", err)
		}
		return s.settle(Unauthenticated, "", nil, false, nil)
	default:
		return s.settle(Authenticated, tok, user, usingMock, nil)
	}
}

func (s *Store) readPersisted() (string, *service.User, bool, error) {
	tok, ok, err := storage.Lookup(s.kv, storage.KeyToken)
	if err != nil || !ok {
		return "", nil, false, err
	}
	rawUser, ok, err := storage.Lookup(s.kv, storage.KeyUser)
	if err != nil || !ok {
		return "", nil, false, err
	}
	flag, _, err := storage.Lookup(s.kv, storage.KeyUsingMock)
	if err != nil {
		return "", nil, false, err
	}

	var user service.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("persisted user is corrupt, ignoring session", "error", err)
		return "", nil, false, nil
	}
	return tok, &user, flag == "true", nil
}

// SignIn authenticates against the real backend. On failure the previous
// state is left untouched and the error is surfaced.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, s.real.Login, email, password, false)
}

// SignInDemo authenticates against the mock backend.
func (s *Store) SignInDemo(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, s.mock.Login, email, password, true)
}

// Register creates an account on the real backend and signs it in.
func (s *Store) Register(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, s.real.Register, email, password, false)
}

type authFunc func(ctx context.Context, email, password string) (service.AuthResponse, error)

func (s *Store) authenticate(ctx context.Context, fn authFunc, email, password string, usingMock bool) error {
	s.begin()

	auth, err := fn(ctx, email, password)
	if err != nil {
		s.fail(err)
		return err
	}

	rawUser, err := json.Marshal(auth.User)
	if err != nil {
		err = fmt.Errorf("encode user: %w", err)
		s.fail(err)
		return err
	}
	if err := s.kv.SetMany(map[string]string{
		storage.KeyToken:     auth.Token,
		storage.KeyUser:      string(rawUser),
		storage.KeyUsingMock: strconv.FormatBool(usingMock),
	}); err != nil {
		err = fmt.Errorf("save session: %w", err)
		s.fail(err)
		return err
	}

	user := auth.User
	s.settle(Authenticated, auth.Token, &user, usingMock, nil)
	return nil
}

// SignOut tells the active backend, then purges the session. A backend
// failure is only logged. A purge failure still clears memory and is returned.
func (s *Store) SignOut(ctx context.Context) error {
	s.begin()

	if err := s.Active().Logout(ctx); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}

	var purgeErr error
	if err := s.kv.DeleteMany(storage.SessionKeys...); err != nil {
		purgeErr = fmt.Errorf("purge session: %w", err)
		s.logger.Warn("failed to purge session", "error", err)
	}
	s.settle(Unauthenticated, "", nil, false, purgeErr)
	return purgeErr
}

// ClearError clears the last surfaced error.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.publishLocked()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Active returns the backend variant the session is using.
func (s *Store) Active() service.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usingMock {
		return s.mock
	}
	return s.real
}

// Credential returns the held credential, or "".
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe returns a channel receiving a snapshot after every change. Only
// the newest undelivered snapshot is kept. cancel closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, c := range s.subs {
				if c == ch {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.errMsg = ""
	s.publishLocked()
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.errMsg = apierror.Message(err)
	if s.state == Bootstrapping {
		s.state = Unauthenticated
	}
	s.publishLocked()
}

func (s *Store) settle(state State, tok string, user *service.User, usingMock bool, err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.token = tok
	s.user = user
	s.usingMock = usingMock
	s.loading = false
	s.errMsg = apierror.Message(err)
	s.publishLocked()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     s.state,
		UsingMock: s.usingMock,
		Loading:   s.loading,
		Error:     s.errMsg,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
