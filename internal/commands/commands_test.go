package commands_test

import (
	"bytes"
	"context"
	"flag"
	"io"
	"strings"
	"testing"

	"tasktrack/internal/apierror"
	"tasktrack/internal/app"
	"tasktrack/internal/backend/placeholder"
	"tasktrack/internal/commands"
	"tasktrack/internal/config"
	"tasktrack/internal/exitcode"
	"tasktrack/internal/storage"
	"tasktrack/internal/testutil"
	"tasktrack/internal/transport"
)

// testEnv is a wired client over FakeService and an in-memory store.
type testEnv struct {
	t    *testing.T
	svc  *testutil.FakeService
	demo *testutil.FakeService
	cfg  *config.Config
	app  *app.App
}

func newEnv(t *testing.T, signedIn bool, opts ...app.Option) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	svc := testutil.NewFakeService()
	demo := testutil.NewFakeService()
	opts = append([]app.Option{app.WithServices(svc, demo), app.WithStore(storage.NewMemory())}, opts...)
	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })

	if _, err := a.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if signedIn {
		if err := a.Session.SignIn(ctx, "a@b.com", "secret1"); err != nil {
			t.Fatalf("sign in: %v", err)
		}
	}
	return &testEnv{t: t, svc: svc, demo: demo, cfg: cfg, app: a}
}

// seed puts tasks on the fake backend and syncs them in, so they list in
// the given order with ids api-t1, api-t2, ...
func (e *testEnv) seed(titles ...string) {
	e.t.Helper()
	for i, title := range titles {
		e.svc.AddTask("t"+string(rune('1'+i)), title, false)
	}
	if _, err := e.app.Tasks.Sync(context.Background()); err != nil {
		e.t.Fatalf("sync: %v", err)
	}
}

// run parses args with the command's flags, runs it, and waits for the
// background legs it scheduled.
func (e *testEnv) run(cmd commands.Command, args []string, quiet bool) (stdout, stderr string, code int) {
	e.t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		e.t.Fatalf("parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	e.cfg.Quiet = quiet
	ctx := context.Background()
	code = cmd.Run(ctx, e.cfg, e.app, fs.Args(), &outBuf, &errBuf)
	if err := e.app.Tasks.Wait(ctx); err != nil {
		e.t.Fatalf("wait: %v", err)
	}
	return outBuf.String(), errBuf.String(), code
}

// runConfigOnly runs a command that needs no client.
func runConfigOnly(t *testing.T, cmd commands.Command, cfg *config.Config, args []string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), cfg, nil, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cfg, _ := config.New(t.TempDir())

	stdout, stderr, code := runConfigOnly(t, &commands.VersionCmd{}, cfg, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasktrack 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cfg, _ := config.New(t.TempDir())

	stdout, stderr, code := runConfigOnly(t, &commands.HelpCmd{}, cfg, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

// Every registered command appears in help.
func TestHelpCommand_CoversRegistry(t *testing.T) {
	cfg, _ := config.New(t.TempDir())
	stdout, _, _ := runConfigOnly(t, &commands.HelpCmd{}, cfg, nil)

	for _, cmd := range commands.DefaultRegistry.All() {
		if !strings.Contains(stdout, "tasktrack "+cmd.Name()) {
			t.Errorf("help output is missing %q", cmd.Name())
		}
	}
}

// Tests for list command
func TestListCommand_WithTasks(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk", "Buy eggs")

	stdout, stderr, code := env.run(&commands.ListCmd{}, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	expected := "   1  [ ] Buy milk\n   2  [ ] Buy eggs\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	env := newEnv(t, true)

	stdout, stderr, code := env.run(&commands.ListCmd{}, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected %q, got %q", "no tasks found\n", stdout)
	}
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	env := newEnv(t, true)

	stdout, _, code := env.run(&commands.ListCmd{}, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	// Quiet mode should suppress "no tasks found"
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}

func TestListCommand_Long(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk")

	stdout, _, code := env.run(&commands.ListCmd{}, []string{"--long"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "   1  [ ] Buy milk\n          id: api-t1\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_LongDetails(t *testing.T) {
	env := newEnv(t, true)
	env.svc.CreateTaskErr = apierror.ServerLogicf("rejected")
	env.seed("Buy milk", "Walk dog")
	args := []string{"--desc", "by the river", "--lat", "51.5", "--lon", "-0.12", "--photo", "file:///dog.jpg", "Walk", "again"}
	if _, _, code := env.run(&commands.AddCmd{}, args, true); code != exitcode.Success {
		t.Fatalf("add failed with %d", code)
	}
	if _, _, code := env.run(&commands.DoneCmd{}, []string{"2"}, true); code != exitcode.Success {
		t.Fatalf("done failed with %d", code)
	}

	stdout, _, _ := env.run(&commands.ListCmd{}, []string{"-l"}, false)

	// The added task's id is a timestamp; mask it.
	id := env.app.Tasks.List()[2].ID
	testutil.GoldenString(t, "list_long", strings.ReplaceAll(stdout, id, "<local-id>"))
}

func TestListCommand_UnsyncedMarker(t *testing.T) {
	env := newEnv(t, true)
	env.svc.CreateTaskErr = apierror.ServerLogicf("rejected")

	if _, _, code := env.run(&commands.AddCmd{}, []string{"Offline"}, true); code != exitcode.Success {
		t.Fatalf("add failed with %d", code)
	}
	stdout, _, _ := env.run(&commands.ListCmd{}, nil, false)

	expected := "   1  [ ] Offline *\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	env := newEnv(t, true)

	stdout, stderr, code := env.run(&commands.AddCmd{}, []string{"Buy", "groceries"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	// Created locally and acknowledged by the backend
	tasks := env.app.Tasks.List()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "Buy groceries" {
		t.Errorf("expected title 'Buy groceries', got %q", tasks[0].Title)
	}
	if !tasks[0].Synced || tasks[0].RemoteID != "srv-1" {
		t.Errorf("expected task acknowledged as srv-1, got %+v", tasks[0])
	}
	if remote := env.svc.Tasks(); len(remote) != 1 || remote[0].Title != "Buy groceries" {
		t.Errorf("expected backend to have the task, got %+v", remote)
	}
}

func TestAddCommand_WithDetails(t *testing.T) {
	env := newEnv(t, true)

	_, stderr, code := env.run(&commands.AddCmd{},
		[]string{"--desc", "2 litres", "--lat", "1.5", "--photo", "file:///milk.jpg", "Milk"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	task := env.app.Tasks.List()[0]
	if task.Description != "2 litres" {
		t.Errorf("expected description, got %q", task.Description)
	}
	if task.Location == nil || task.Location.Latitude != 1.5 || task.Location.Longitude != 0 {
		t.Errorf("expected location 1.5,0 got %+v", task.Location)
	}
	if task.PhotoURI != "file:///milk.jpg" {
		t.Errorf("expected photo uri, got %q", task.PhotoURI)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	env := newEnv(t, true)

	stdout, stderr, code := env.run(&commands.AddCmd{}, []string{"Buy", "milk"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_NoTitle(t *testing.T) {
	env := newEnv(t, true)

	stdout, stderr, code := env.run(&commands.AddCmd{}, []string{"  "}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: title required\n" {
		t.Errorf("expected title required error, got %q", stderr)
	}
}

// Tests for done command
func TestDoneCommand_Success(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk", "Buy eggs")

	stdout, stderr, code := env.run(&commands.DoneCmd{}, []string{"1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	task, _ := env.app.Tasks.Get("api-t1")
	if !task.Completed {
		t.Error("expected task 1 to be completed locally")
	}
	if remote := env.svc.Tasks(); !remote[0].Completed || remote[1].Completed {
		t.Errorf("expected only t1 completed on the backend, got %+v", remote)
	}
}

func TestDoneCommand_ByIDAndUndo(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk", "Buy eggs")

	if _, _, code := env.run(&commands.DoneCmd{}, []string{"api-t2", "1"}, true); code != exitcode.Success {
		t.Fatalf("done failed with %d", code)
	}
	if _, _, code := env.run(&commands.DoneCmd{}, []string{"--undo", "2"}, true); code != exitcode.Success {
		t.Fatalf("done --undo failed with %d", code)
	}

	first, _ := env.app.Tasks.Get("api-t1")
	second, _ := env.app.Tasks.Get("api-t2")
	if !first.Completed || second.Completed {
		t.Errorf("expected t1 done and t2 reopened, got %v/%v", first.Completed, second.Completed)
	}
}

func TestDoneCommand_NoRef(t *testing.T) {
	env := newEnv(t, true)

	_, stderr, code := env.run(&commands.DoneCmd{}, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected task reference required error, got %q", stderr)
	}
}

func TestDoneCommand_OutOfRange(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk")

	_, stderr, code := env.run(&commands.DoneCmd{}, []string{"3"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: task number out of range: 3\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDoneCommand_UnknownID(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk")

	_, stderr, code := env.run(&commands.DoneCmd{}, []string{"nope"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: task not found: nope\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk", "Buy eggs", "Buy bread")

	stdout, stderr, code := env.run(&commands.RmCmd{}, []string{"1", "3"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	tasks := env.app.Tasks.List()
	if len(tasks) != 1 || tasks[0].Title != "Buy eggs" {
		t.Errorf("expected only 'Buy eggs' left, got %+v", tasks)
	}
	if remote := env.svc.Tasks(); len(remote) != 1 || remote[0].ID != "t2" {
		t.Errorf("expected backend to keep only t2, got %+v", remote)
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	env := newEnv(t, true)

	stdout, stderr, code := env.run(&commands.RmCmd{}, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected task reference required error, got %q", stderr)
	}
}

// Tests for edit command
func TestEditCommand_Title(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk")

	stdout, stderr, code := env.run(&commands.EditCmd{}, []string{"--title", "Buy oat milk", "1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	task, _ := env.app.Tasks.Get("api-t1")
	if task.Title != "Buy oat milk" {
		t.Errorf("expected new title, got %q", task.Title)
	}
	if remote := env.svc.Tasks(); remote[0].Title != "Buy oat milk" {
		t.Errorf("expected backend title updated, got %q", remote[0].Title)
	}
}

func TestEditCommand_LocationKeepsOtherCoordinate(t *testing.T) {
	env := newEnv(t, true)
	if _, _, code := env.run(&commands.AddCmd{}, []string{"--lat", "1", "--lon", "2", "Here"}, true); code != exitcode.Success {
		t.Fatalf("add failed with %d", code)
	}

	if _, stderr, code := env.run(&commands.EditCmd{}, []string{"--lon", "5", "1"}, true); code != exitcode.Success {
		t.Fatalf("edit failed with %d (%s)", code, stderr)
	}

	loc := env.app.Tasks.List()[0].Location
	if loc == nil || loc.Latitude != 1 || loc.Longitude != 5 {
		t.Errorf("expected location 1,5 got %+v", loc)
	}
}

func TestEditCommand_NothingToChange(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk")

	_, stderr, code := env.run(&commands.EditCmd{}, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: nothing to change\n" {
		t.Errorf("expected nothing to change error, got %q", stderr)
	}
}

func TestEditCommand_EmptyTitle(t *testing.T) {
	env := newEnv(t, true)
	env.seed("Buy milk")

	_, stderr, code := env.run(&commands.EditCmd{}, []string{"--title", " ", "1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr == "" {
		t.Error("expected a validation error")
	}
}

// Tests for sync and import commands
func TestSyncCommand(t *testing.T) {
	env := newEnv(t, true)
	env.svc.AddTask("t1", "Remote one", false)
	env.svc.AddTask("t2", "Remote two", true)

	stdout, stderr, code := env.run(&commands.SyncCmd{}, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "synced 2 new tasks\n" {
		t.Errorf("expected sync summary, got %q", stdout)
	}

	// A second sync adds nothing.
	stdout, _, _ = env.run(&commands.SyncCmd{}, nil, false)
	if stdout != "synced 0 new tasks\n" {
		t.Errorf("expected nothing new, got %q", stdout)
	}
}

func TestSyncCommand_BackendError(t *testing.T) {
	env := newEnv(t, true)
	env.svc.GetTasksErr = &apierror.Error{Kind: apierror.HTTPStatus, Status: 500}

	_, stderr, code := env.run(&commands.SyncCmd{}, nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: server error: try again later\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestSyncCommand_Unauthorized(t *testing.T) {
	env := newEnv(t, true)
	env.svc.GetTasksErr = &apierror.Error{Kind: apierror.HTTPStatus, Status: 401}

	_, _, code := env.run(&commands.SyncCmd{}, nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

func TestImportCommand(t *testing.T) {
	ph := testutil.NewPlaceholder(t, 10)
	env := newEnv(t, true, app.WithImport(placeholder.New(transport.New(ph.URL))))

	stdout, stderr, code := env.run(&commands.ImportCmd{}, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "imported 5 tasks\n" {
		t.Errorf("expected import summary, got %q", stdout)
	}
	if got := env.app.Tasks.List()[0].Title; got != "[Imported] remote todo 1" {
		t.Errorf("expected imported title, got %q", got)
	}
}
