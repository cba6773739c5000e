package rest

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"tasktrack/internal/apierror"
	"tasktrack/internal/service"
	"tasktrack/internal/testutil"
	"tasktrack/internal/transport"
)

var _ service.Service = (*Client)(nil)

// credential is a swappable token source standing in for the session.
type credential struct {
	mu  sync.Mutex
	tok string
}

func (c *credential) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &oauth2.Token{AccessToken: c.tok}, nil
}

func (c *credential) set(tok string) {
	c.mu.Lock()
	c.tok = tok
	c.mu.Unlock()
}

func newClient(t *testing.T) (*Client, *testutil.Backend, *credential) {
	t.Helper()
	backend := testutil.NewBackend(t)
	cred := &credential{}
	tr := transport.New(backend.URL, transport.WithTokenSource(cred))
	return New(tr, cred), backend, cred
}

func TestLogin(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.AddUser("u1", "a@b.com", "secret1")

	auth, err := c.Login(context.Background(), "a@b.com", "secret1")

	require.NoError(t, err)
	assert.Equal(t, "u1", auth.User.ID)
	assert.NotEmpty(t, auth.Token)

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/auth/login", reqs[0].Path)
	assert.Empty(t, reqs[0].Authorization)
	assert.JSONEq(t, `{"email":"a@b.com","password":"secret1"}`, reqs[0].Body)
}

func TestLogin_WrongPassword(t *testing.T) {
	c, backend, _ := newClient(t)
	backend.AddUser("u1", "a@b.com", "secret1")

	_, err := c.Login(context.Background(), "a@b.com", "nope")

	require.Error(t, err)
	assert.Equal(t, 401, apierror.StatusOf(err))
	assert.Equal(t, "unauthorized: token expired or invalid", apierror.Message(err))
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	c, backend, _ := newClient(t)

	_, err := c.Login(context.Background(), "", "")

	assert.Equal(t, apierror.Validation, apierror.KindOf(err))
	assert.Empty(t, backend.Requests())
}

func TestLogin_InvalidStructure(t *testing.T) {
	srv := newRawServer(t, http.StatusOK, `{"success":true,"data":{"user":{"email":"a@b.com"},"token":"x.y.z"}}`)
	c := New(transport.New(srv), nil)

	_, err := c.Login(context.Background(), "a@b.com", "secret1")

	assert.Equal(t, apierror.ServerLogic, apierror.KindOf(err))
	assert.Equal(t, "invalid response structure", apierror.Message(err))
}

func TestRegister(t *testing.T) {
	c, backend, _ := newClient(t)

	_, err := c.Register(context.Background(), "new@b.com", "12345")
	assert.Equal(t, "password must be at least 6 characters", apierror.Message(err))
	assert.Empty(t, backend.Requests())

	auth, err := c.Register(context.Background(), "new@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", auth.User.Email)

	_, err = c.Register(context.Background(), "new@b.com", "123456")
	assert.Equal(t, 409, apierror.StatusOf(err))
	assert.Equal(t, "conflict: email already registered", apierror.Message(err))
}

func TestTasksRoundTrip(t *testing.T) {
	c, backend, cred := newClient(t)
	backend.AddUser("u1", "a@b.com", "secret1")
	ctx := context.Background()

	auth, err := c.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	cred.set(auth.Token)

	lat := -33.45
	created, err := c.CreateTask(ctx, service.CreateTaskRequest{Title: "  Buy milk ", Latitude: &lat, PhotoURI: "file:///p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "u1", created.UserID)
	require.NotNil(t, created.Location)
	assert.Equal(t, -33.45, created.Location.Latitude)
	assert.Equal(t, 0.0, created.Location.Longitude)

	last := backend.Requests()[len(backend.Requests())-1]
	assert.Equal(t, "Bearer "+auth.Token, last.Authorization)
	assert.JSONEq(t, `{"title":"Buy milk","completed":false,"location":{"latitude":-33.45,"longitude":0},"photoUri":"file:///p.jpg"}`, last.Body)

	done := true
	updated, err := c.UpdateTask(ctx, created.ID, service.UpdateTaskRequest{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	tasks, err := c.GetTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)

	require.NoError(t, c.DeleteTask(ctx, created.ID))
	assert.Empty(t, backend.Tasks())

	err = c.DeleteTask(ctx, created.ID)
	assert.Equal(t, 404, apierror.StatusOf(err))
}

func TestCreateTask_OmitsEmptyOptionalFields(t *testing.T) {
	c, backend, cred := newClient(t)
	cred.set(backend.IssueToken(service.User{ID: "u1"}, time.Hour))

	_, err := c.CreateTask(context.Background(), service.CreateTaskRequest{Title: "plain"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"title":"plain","completed":false}`, backend.Requests()[0].Body)
}

func TestTasks_Unauthorized(t *testing.T) {
	c, _, _ := newClient(t)

	_, err := c.GetTasks(context.Background())

	assert.Equal(t, apierror.HTTPStatus, apierror.KindOf(err))
	assert.Equal(t, 401, apierror.StatusOf(err))
}

func TestTaskMutations_ValidateID(t *testing.T) {
	c, backend, _ := newClient(t)
	done := true

	_, err := c.UpdateTask(context.Background(), "", service.UpdateTaskRequest{Completed: &done})
	assert.Equal(t, apierror.Validation, apierror.KindOf(err))

	err = c.DeleteTask(context.Background(), "  ")
	assert.Equal(t, apierror.Validation, apierror.KindOf(err))

	_, err = c.CreateTask(context.Background(), service.CreateTaskRequest{Title: ""})
	assert.Equal(t, apierror.Validation, apierror.KindOf(err))

	assert.Empty(t, backend.Requests())
}

func TestDeleteTask_FailureEnvelope(t *testing.T) {
	srv := newRawServer(t, http.StatusOK, `{"success":false,"error":"locked"}`)
	c := New(transport.New(srv), nil)

	err := c.DeleteTask(context.Background(), "1")

	assert.Equal(t, apierror.ServerLogic, apierror.KindOf(err))
	assert.Equal(t, "locked", apierror.Message(err))
}

func TestValidateToken(t *testing.T) {
	c, backend, cred := newClient(t)
	ctx := context.Background()

	ok, err := c.ValidateToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cred.set(backend.IssueToken(service.User{ID: "u1"}, time.Hour))
	ok, err = c.ValidateToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	cred.set(backend.IssueToken(service.User{ID: "u1"}, -time.Minute))
	ok, err = c.ValidateToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cred.set("not-a-token")
	ok, err = c.ValidateToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, backend.Requests())
}

func TestLogout_IsLocal(t *testing.T) {
	c, backend, _ := newClient(t)

	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, backend.Requests())
}
