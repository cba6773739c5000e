// Package app wires configuration, persistence, the backend variants, the
// session store and the task engine into one client.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"tasktrack/internal/backend/googletasks"
	"tasktrack/internal/backend/mock"
	"tasktrack/internal/backend/placeholder"
	"tasktrack/internal/backend/rest"
	"tasktrack/internal/config"
	"tasktrack/internal/logging"
	"tasktrack/internal/service"
	"tasktrack/internal/session"
	"tasktrack/internal/storage"
	"tasktrack/internal/tasksync"
	"tasktrack/internal/transport"
	"tasktrack/internal/worker"
)

// App is a fully wired client.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Session *session.Store
	Tasks   *tasksync.Engine

	kv    storage.Store
	queue *worker.Queue
}

type options struct {
	real, mock service.Service
	kv         storage.Store
	remote     tasksync.Remote
	importer   tasksync.Remote
	logger     *slog.Logger
}

// Option overrides a wired component.
type Option func(*options)

// WithServices replaces the real and mock backend variants.
func WithServices(real, mock service.Service) Option {
	return func(o *options) { o.real, o.mock = real, mock }
}

// WithStore replaces the configured persistence backend.
func WithStore(kv storage.Store) Option {
	return func(o *options) { o.kv = kv }
}

// WithRemote replaces the sync source.
func WithRemote(r tasksync.Remote) Option {
	return func(o *options) { o.remote = r }
}

// WithImport replaces the import source.
func WithImport(r tasksync.Remote) Option {
	return func(o *options) { o.importer = r }
}

// WithLogger sets the logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds the client described by cfg. Nothing is read from storage
// until Bootstrap.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrDiscard(o.logger)

	kv := o.kv
	if kv == nil {
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("create config dir: %w", err)
		}
		var err error
		kv, err = storage.Open(cfg.Storage, cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
	}

	if o.real == nil {
		tr := transport.New(cfg.APIURL,
			transport.WithTokenSource(session.NewTokenSource(kv)),
			transport.WithTimeout(cfg.Timeout),
			transport.WithLogger(logger),
		)
		o.real = rest.New(tr, session.NewTokenSource(kv))
	}
	if o.mock == nil {
		o.mock = mock.New(mock.WithLogger(logger))
	}

	sess := session.New(kv, o.real, o.mock, logger)

	importer := o.importer
	if importer == nil {
		importer = placeholder.New(transport.New(cfg.PlaceholderURL,
			transport.WithTimeout(cfg.Timeout),
			transport.WithLogger(logger),
		))
	}

	remote := o.remote
	if remote == nil {
		var err error
		remote, err = syncSource(ctx, cfg, sess, importer)
		if err != nil {
			_ = kv.Close()
			return nil, err
		}
	}

	queue := worker.New(worker.WithRate(cfg.BackgroundRPS), worker.WithLogger(logger))
	engine := tasksync.New(tasksync.Config{
		Store:         kv,
		Remote:        remote,
		Import:        importer,
		Queue:         queue,
		UserID:        userIDOf(sess),
		ImportTimeout: cfg.ImportTimeout,
		Logger:        logger,
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		Session: sess,
		Tasks:   engine,
		kv:      kv,
		queue:   queue,
	}, nil
}

func syncSource(ctx context.Context, cfg *config.Config, sess *session.Store, importer tasksync.Remote) (tasksync.Remote, error) {
	switch cfg.SyncSource {
	case "", config.SyncSourceAPI:
		return tasksync.NewServiceRemote(sess.Active), nil
	case config.SyncSourcePlaceholder:
		return importer, nil
	case config.SyncSourceGoogleTasks:
		return googletasks.New(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown sync source %q", cfg.SyncSource)
}

func userIDOf(sess *session.Store) func() string {
	return func() string {
		if u := sess.Snapshot().User; u != nil {
			return u.ID
		}
		return ""
	}
}

// Bootstrap restores the persisted session and, when one is active, the
// persisted task collection.
func (a *App) Bootstrap(ctx context.Context) (session.Snapshot, error) {
	snap := a.Session.Bootstrap(ctx)
	if !snap.Authenticated() {
		return snap, nil
	}
	if err := a.Tasks.Load(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// Close waits for outstanding background legs, then releases storage.
func (a *App) Close(ctx context.Context) error {
	if err := a.Tasks.Wait(ctx); err != nil {
		a.Logger.Warn("background work abandoned", "pending", a.queue.Pending(), "error", err)
	}
	a.queue.Close()
	return a.kv.Close()
}
