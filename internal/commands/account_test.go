package commands_test

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"tasktrack/internal/apierror"
	"tasktrack/internal/app"
	"tasktrack/internal/commands"
	"tasktrack/internal/config"
	"tasktrack/internal/exitcode"
	"tasktrack/internal/storage"
)

func TestLoginCommand_Success(t *testing.T) {
	env := newEnv(t, false)

	stdout, stderr, code := env.run(&commands.LoginCmd{}, []string{"--password", "secret1", "me@x.io"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	snap := env.app.Session.Snapshot()
	if !snap.Authenticated() || snap.User.Email != "me@x.io" || snap.UsingMock {
		t.Errorf("unexpected session %+v", snap)
	}
}

func TestLoginCommand_Demo(t *testing.T) {
	env := newEnv(t, false)

	_, stderr, code := env.run(&commands.LoginCmd{}, []string{"--demo", "-p", "whatever", "demo@example.com"}, true)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if !env.app.Session.Snapshot().UsingMock {
		t.Error("expected the demo variant to be active")
	}
	if len(env.demo.Calls()) == 0 || len(env.svc.Calls()) != 0 {
		t.Errorf("expected only the demo backend to be used, got real=%v demo=%v", env.svc.Calls(), env.demo.Calls())
	}
}

func TestLoginCommand_NoEmail(t *testing.T) {
	env := newEnv(t, false)

	_, stderr, code := env.run(&commands.LoginCmd{}, []string{"--password", "x"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: email required\n" {
		t.Errorf("expected email required error, got %q", stderr)
	}
}

func TestLoginCommand_Rejected(t *testing.T) {
	env := newEnv(t, false)
	env.svc.LoginErr = &apierror.Error{Kind: apierror.HTTPStatus, Status: 401, Message: "invalid credentials"}

	_, stderr, code := env.run(&commands.LoginCmd{}, []string{"--password", "wrong1", "a@b.com"}, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: unauthorized: token expired or invalid\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if env.app.Session.Snapshot().Authenticated() {
		t.Error("session must stay signed out")
	}
}

func TestLoginCommand_Validation(t *testing.T) {
	env := newEnv(t, false)
	env.svc.LoginErr = apierror.Validationf("password must be at least 6 characters")

	_, stderr, code := env.run(&commands.LoginCmd{}, []string{"--password", "x", "a@b.com"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: password must be at least 6 characters\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestRegisterCommand(t *testing.T) {
	env := newEnv(t, false)

	_, stderr, code := env.run(&commands.RegisterCmd{}, []string{"--password", "secret1", "new@x.io"}, true)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	calls := env.svc.Calls()
	if len(calls) == 0 || calls[len(calls)-1] != "Register" {
		t.Errorf("expected Register call, got %v", calls)
	}
	if !env.app.Session.Snapshot().Authenticated() {
		t.Error("expected to be signed in after register")
	}
}

func TestRegisterCommand_Conflict(t *testing.T) {
	env := newEnv(t, false)
	env.svc.RegisterErr = &apierror.Error{Kind: apierror.HTTPStatus, Status: 409, Message: "email already registered"}

	_, stderr, code := env.run(&commands.RegisterCmd{}, []string{"--password", "secret1", "a@b.com"}, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: conflict: email already registered\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestWhoamiCommand(t *testing.T) {
	env := newEnv(t, true)

	stdout, _, code := env.run(&commands.WhoamiCmd{}, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "a@b.com\n" {
		t.Errorf("expected %q, got %q", "a@b.com\n", stdout)
	}
}

// TestLogoutCommand_RemovesSession verifies logout forgets the session but
// keeps the task collection.
func TestLogoutCommand_RemovesSession(t *testing.T) {
	kv := storage.NewMemory()
	env := newEnv(t, true, app.WithStore(kv))
	env.seed("Buy milk")

	stdout, stderr, code := env.run(&commands.LogoutCmd{}, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	for _, key := range storage.SessionKeys {
		if _, ok, _ := storage.Lookup(kv, key); ok {
			t.Errorf("expected %s to be removed", key)
		}
	}
	if _, ok, _ := storage.Lookup(kv, storage.KeyTasks); !ok {
		t.Error("tasks should NOT have been removed")
	}
}

// TestLogoutCommand_NotLoggedIn verifies logout handles not being logged in
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	env := newEnv(t, false)

	stdout, stderr, code := env.run(&commands.LogoutCmd{}, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", stdout)
	}
}

// TestLogoutCommand_NotLoggedInQuiet verifies logout is quiet when not logged in
func TestLogoutCommand_NotLoggedInQuiet(t *testing.T) {
	env := newEnv(t, false)

	stdout, _, code := env.run(&commands.LogoutCmd{}, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

// TestLinkGoogleCommand_NoOAuthClient verifies link-google fails without oauth_client.json
func TestLinkGoogleCommand_NoOAuthClient(t *testing.T) {
	cfg, _ := config.New(t.TempDir())

	stdout, stderr, code := runConfigOnly(t, &commands.LinkGoogleCmd{}, cfg, nil)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr == "" {
		t.Error("expected error message about missing oauth_client.json")
	}
}

// TestLinkGoogleCommand_NoRefreshToken verifies link-google proceeds when the
// stored token cannot refresh.
func TestLinkGoogleCommand_NoRefreshToken(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, _ := config.New(tmpDir)

	oauthClient := `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(filepath.Join(tmpDir, config.OAuthClientFile), []byte(oauthClient), 0600); err != nil {
		t.Fatalf("failed to write oauth_client.json: %v", err)
	}
	if err := os.WriteFile(cfg.GoogleTokenPath(), []byte(`{"access_token":"expired","token_type":"Bearer"}`), 0600); err != nil {
		t.Fatalf("failed to write token: %v", err)
	}

	cmd := &commands.LinkGoogleCmd{}
	var outBuf, errBuf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = cmd.Run(ctx, cfg, nil, nil, &outBuf, &errBuf)

	// Context is cancelled so it errors out; it must not claim to be linked.
	if outBuf.String() == "already linked\n" {
		t.Error("should not say 'already linked' with a token lacking refresh_token")
	}
}

func TestLinkGoogleCommand_Unlink(t *testing.T) {
	cfg, _ := config.New(t.TempDir())
	cmd := &commands.LinkGoogleCmd{}
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse([]string{"--unlink"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	stdout, _, code := runConfigOnly(t, cmd, cfg, nil)
	if code != exitcode.Success || stdout != "not linked\n" {
		t.Errorf("expected 'not linked', got %d %q", code, stdout)
	}

	if err := os.WriteFile(cfg.GoogleTokenPath(), []byte(`{}`), 0600); err != nil {
		t.Fatalf("failed to write token: %v", err)
	}
	stdout, _, code = runConfigOnly(t, cmd, cfg, nil)
	if code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("expected 'ok', got %d %q", code, stdout)
	}
	if cfg.HasGoogleToken() {
		t.Error("token should have been removed")
	}
}
