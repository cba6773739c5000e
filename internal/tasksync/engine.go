// Package tasksync keeps the local task collection and reconciles it with a
// remote source. Local mutations are applied and persisted first; the remote
// leg runs in the background and never rolls them back.
package tasksync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasktrack/internal/apierror"
	"tasktrack/internal/logging"
	"tasktrack/internal/service"
	"tasktrack/internal/storage"
	"tasktrack/internal/worker"
)

const (
	// SyncLimit is the page size pulled by Sync.
	SyncLimit = 10

	// ImportLimit is the page size pulled by Import.
	ImportLimit = 5

	// ImportTimeout bounds the Import request.
	ImportTimeout = 10 * time.Second

	// ImportedMarker prefixes the title of imported tasks.
	ImportedMarker = "[Imported] "

	apiPrefix      = "api-"
	importedPrefix = "imported-"
)

// Config wires an Engine.
type Config struct {
	// Store persists the collection under storage.KeyTasks.
	Store storage.Store

	// Remote serves Sync and the background legs.
	Remote Remote

	// Import serves Import. Defaults to Remote.
	Import Remote

	// Queue runs background legs. A private queue is created when nil.
	Queue *worker.Queue

	// UserID returns the signed-in user's id for tasks lacking one.
	UserID func() string

	// ImportTimeout bounds Import. Defaults to the ImportTimeout constant.
	ImportTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Snapshot is a copy of the observable engine state.
type Snapshot struct {
	Tasks   []service.Task
	Loading bool
	Error   string
	Pending int
}

// Engine owns the local task collection.
type Engine struct {
	kv       storage.Store
	remote   Remote
	importer Remote
	queue    *worker.Queue
	userID   func() string
	logger   *slog.Logger
	now      func() time.Time
	importTO time.Duration

	mu           sync.Mutex
	tasks        []service.Task
	loading      bool
	errMsg       string
	lastLocalID  int64
	lastImportTS int64
}

// New returns an Engine with an empty collection. Call Load to restore the
// persisted one.
func New(cfg Config) *Engine {
	e := &Engine{
		kv:       cfg.Store,
		remote:   cfg.Remote,
		importer: cfg.Import,
		queue:    cfg.Queue,
		userID:   cfg.UserID,
		logger:   logging.OrDiscard(cfg.Logger),
		now:      cfg.Now,
		importTO: cfg.ImportTimeout,
	}
	if e.kv == nil {
		e.kv = storage.NewMemory()
	}
	if e.importer == nil {
		e.importer = e.remote
	}
	if e.queue == nil {
		e.queue = worker.New(worker.WithLogger(e.logger))
	}
	if e.userID == nil {
		e.userID = func() string { return "" }
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.importTO <= 0 {
		e.importTO = ImportTimeout
	}
	return e
}

// Load replaces the collection with the persisted snapshot.
func (e *Engine) Load(ctx context.Context) error {
	e.begin()

	raw, ok, err := storage.Lookup(e.kv, storage.KeyTasks)
	if err != nil {
		err = fmt.Errorf("load tasks: %w", err)
		e.end(err)
		return err
	}

	var tasks []service.Task
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
			err = fmt.Errorf("load tasks: %w", err)
			e.end(err)
			return err
		}
	}

	e.mu.Lock()
	e.tasks = tasks
	e.mu.Unlock()

	e.end(nil)
	return nil
}

// List returns the local collection.
func (e *Engine) List() []service.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTasks(e.tasks)
}

// Get returns the task with id.
func (e *Engine) Get(id string) (service.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(id); i >= 0 {
		return e.tasks[i], true
	}
	return service.Task{}, false
}

// Add creates a task locally, persists it and schedules the remote create.
// The returned task is unsynced.
func (e *Engine) Add(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	e.begin()

	req, err := service.ValidateCreate(req)
	if err != nil {
		e.end(err)
		return service.Task{}, err
	}

	e.mu.Lock()
	now := e.now().UTC()
	task := service.Task{
		ID:          e.nextLocalIDLocked(now),
		UserID:      e.userID(),
		Title:       req.Title,
		Description: req.Description,
		Completed:   false,
		Location:    req.Loc(),
		PhotoURI:    req.PhotoURI,
		CreatedAt:   now,
		UpdatedAt:   now,
		Synced:      false,
	}
	e.tasks = append(e.tasks, task)
	if err := e.persistLocked(); err != nil {
		e.tasks = e.tasks[:len(e.tasks)-1]
		e.mu.Unlock()
		e.end(err)
		return service.Task{}, err
	}
	e.mu.Unlock()

	if e.remote != nil {
		e.queue.Submit(task.ID, func(ctx context.Context) error {
			remoteID, err := e.remote.CreateTodo(ctx, task)
			if err != nil {
				return fmt.Errorf("create %s: %w", task.ID, err)
			}
			// An Update that landed while this create was in flight had no
			// remote id to address, so its change is not on the remote yet.
			e.patch(task.ID, func(t *service.Task) {
				t.Synced = true
				t.RemoteID = remoteID
			})
			return nil
		})
	}

	e.end(nil)
	return task, nil
}

// Update applies req to the task with id, persists it and schedules the remote
// update. A task that never reached the remote has no remote leg.
func (e *Engine) Update(ctx context.Context, id string, req service.UpdateTaskRequest) (service.Task, error) {
	e.begin()

	if err := service.ValidateUpdate(id, req); err != nil {
		e.end(err)
		return service.Task{}, err
	}

	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		err := apierror.NotFound(id)
		e.end(err)
		return service.Task{}, err
	}

	prev := e.tasks[i]
	updated := prev
	req.Apply(&updated)
	updated.UpdatedAt = e.now().UTC()
	updated.Synced = false
	e.tasks[i] = updated

	if err := e.persistLocked(); err != nil {
		e.tasks[i] = prev
		e.mu.Unlock()
		e.end(err)
		return service.Task{}, err
	}
	e.mu.Unlock()

	if src, remoteID := e.sourceFor(updated); src != nil && remoteID != "" {
		e.queue.Submit(id, func(ctx context.Context) error {
			if err := src.UpdateTodo(ctx, remoteID, req); err != nil {
				return fmt.Errorf("update %s: %w", id, err)
			}
			e.patch(id, func(t *service.Task) { t.Synced = true })
			return nil
		})
	}

	e.end(nil)
	return updated, nil
}

// Delete removes the task with id, persists the collection and schedules the
// remote delete.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.begin()

	if err := service.ValidateID(id); err != nil {
		e.end(err)
		return err
	}

	e.mu.Lock()
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		err := apierror.NotFound(id)
		e.end(err)
		return err
	}

	prev := cloneTasks(e.tasks)
	removed := e.tasks[i]
	e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
	if err := e.persistLocked(); err != nil {
		e.tasks = prev
		e.mu.Unlock()
		e.end(err)
		return err
	}
	e.mu.Unlock()

	if src, remoteID := e.sourceFor(removed); src != nil && remoteID != "" {
		e.queue.Submit(id, func(ctx context.Context) error {
			if err := src.DeleteTodo(ctx, remoteID); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			return nil
		})
	}

	e.end(nil)
	return nil
}

// Sync pulls a page of remote records and appends those not yet present.
// Existing local records are never overwritten. It returns how many were added.
func (e *Engine) Sync(ctx context.Context) (int, error) {
	e.begin()

	if e.remote == nil {
		err := fmt.Errorf("no remote source configured")
		e.end(err)
		return 0, err
	}

	todos, err := e.remote.ListTodos(ctx, SyncLimit)
	if err != nil {
		e.end(err)
		return 0, err
	}

	e.mu.Lock()
	seen := make(map[string]bool, len(e.tasks))
	for _, t := range e.tasks {
		seen[t.ID] = true
	}

	now := e.now().UTC()
	prevLen := len(e.tasks)
	for _, todo := range todos {
		if todo.ID == "" || todo.Title == "" {
			continue
		}
		id := apiPrefix + todo.ID
		if seen[id] {
			continue
		}
		seen[id] = true
		e.tasks = append(e.tasks, e.fromRemote(id, todo.Title, todo, now))
	}

	added := len(e.tasks) - prevLen
	if added > 0 {
		if err := e.persistLocked(); err != nil {
			e.tasks = e.tasks[:prevLen]
			e.mu.Unlock()
			e.end(err)
			return 0, err
		}
	}
	e.mu.Unlock()

	e.logger.Debug("sync finished", "fetched", len(todos), "added", added)
	e.end(nil)
	return added, nil
}

// Import appends a small page of remote records as new tasks with an
// "[Imported] " title. Repeated imports produce duplicates with distinct ids.
func (e *Engine) Import(ctx context.Context) (int, error) {
	e.begin()

	if e.importer == nil {
		err := fmt.Errorf("no import source configured")
		e.end(err)
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.importTO)
	defer cancel()

	todos, err := e.importer.ListTodos(ctx, ImportLimit)
	if err != nil {
		e.end(err)
		return 0, err
	}

	e.mu.Lock()
	now := e.now().UTC()
	ts := now.UnixMilli()
	if ts <= e.lastImportTS {
		ts = e.lastImportTS + 1
	}
	e.lastImportTS = ts

	prevLen := len(e.tasks)
	for i, todo := range todos {
		if todo.Title == "" {
			continue
		}
		id := fmt.Sprintf("%s%s-%d-%d", importedPrefix, todo.ID, ts, i)
		e.tasks = append(e.tasks, e.fromRemote(id, ImportedMarker+todo.Title, todo, now))
	}

	added := len(e.tasks) - prevLen
	if err := e.persistLocked(); err != nil {
		e.tasks = e.tasks[:prevLen]
		e.mu.Unlock()
		e.end(err)
		return 0, err
	}
	e.mu.Unlock()

	e.end(nil)
	return added, nil
}

func (e *Engine) fromRemote(id, title string, todo RemoteTodo, now time.Time) service.Task {
	userID := todo.UserID
	if userID == "" {
		userID = e.userID()
	}
	return service.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Completed: todo.Completed,
		CreatedAt: now,
		UpdatedAt: now,
		Synced:    true,
		RemoteID:  todo.ID,
	}
}

// Snapshot returns the observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Tasks:   cloneTasks(e.tasks),
		Loading: e.loading,
		Error:   e.errMsg,
		Pending: e.queue.Pending(),
	}
}

// Pending returns the number of unfinished background legs for id.
func (e *Engine) Pending(id string) int {
	return e.queue.InFlight(id)
}

// Wait blocks until all background legs have finished or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	return e.queue.Wait(ctx)
}

// ClearError clears the shared error slot.
func (e *Engine) ClearError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errMsg = ""
}

// patch applies fn to the freshest copy of task id and persists. A task
// deleted in the meantime is left alone.
func (e *Engine) patch(id string, fn func(*service.Task)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return
	}
	fn(&e.tasks[i])
	if err := e.persistLocked(); err != nil {
		e.logger.Warn("failed to persist background result", "task_id", id, "error", err)
	}
}

func (e *Engine) begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = true
	e.errMsg = ""
}

func (e *Engine) end(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	e.errMsg = apierror.Message(err)
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.tasks {
		if e.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// nextLocalIDLocked returns a millisecond timestamp id not yet in use.
func (e *Engine) nextLocalIDLocked(now time.Time) string {
	n := now.UnixMilli()
	if n <= e.lastLocalID {
		n = e.lastLocalID + 1
	}
	for e.indexLocked(strconv.FormatInt(n, 10)) >= 0 {
		n++
	}
	e.lastLocalID = n
	return strconv.FormatInt(n, 10)
}

func (e *Engine) persistLocked() error {
	data, err := json.Marshal(e.tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := e.kv.SetMany(map[string]string{storage.KeyTasks: string(data)}); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// sourceFor returns the source that issued task's remote id and that id.
// Imported tasks belong to the import source, everything else to the sync
// source.
func (e *Engine) sourceFor(task service.Task) (Remote, string) {
	if strings.HasPrefix(task.ID, importedPrefix) {
		return e.importer, RemoteRef(task)
	}
	return e.remote, RemoteRef(task)
}

// RemoteRef returns the id the remote knows task by: the acknowledged remote
// id, else the one encoded in the provenance prefix, else "".
func RemoteRef(task service.Task) string {
	if task.RemoteID != "" {
		return task.RemoteID
	}
	if rest, ok := strings.CutPrefix(task.ID, apiPrefix); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(task.ID, importedPrefix); ok {
		// <remoteID>-<timestamp>-<index>
		for range 2 {
			i := strings.LastIndexByte(rest, '-')
			if i < 0 {
				return ""
			}
			rest = rest[:i]
		}
		return rest
	}
	return ""
}

func cloneTasks(in []service.Task) []service.Task {
	if in == nil {
		return []service.Task{}
	}
	out := make([]service.Task, len(in))
	copy(out, in)
	return out
}
