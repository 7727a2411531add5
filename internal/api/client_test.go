package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentportal/portal/internal/api"
	"github.com/agentportal/portal/internal/testutil"
)

var testHeaders = testutil.StaticHeaders{
	"Authorization": "Basic dGVzdDp0ZXN0",
	"Content-Type":  "application/json",
}

func TestClient_ListSessions(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()
	b.Sessions = []api.SessionInfo{
		{SessionID: "s1", Display: "fix the build", Project: "portal"},
		{SessionID: "s2", Display: "add tests", Project: "portal"},
	}

	c := api.NewClient(b.URL(), testHeaders)
	sessions, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b.Sessions, sessions)
}

func TestClient_ListSessionsUnauthorized(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()
	b.RequiredAuth = "Basic something-else"

	c := api.NewClient(b.URL(), testHeaders)
	_, err := c.ListSessions(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestClient_SubmitChat(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()
	b.TaskID = "t42"

	c := api.NewClient(b.URL(), testHeaders)
	taskID, err := c.SubmitChat(context.Background(), api.NewSessionID, "hello agent")
	require.NoError(t, err)

	assert.Equal(t, "t42", taskID)
	assert.Equal(t, "new", b.LastSubmitSession())
	assert.Equal(t, "hello agent", b.LastMessage())
}

func TestClient_SubmitChatErrorDetail(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()
	b.SubmitStatus = 503
	b.SubmitDetail = "agent unavailable"

	c := api.NewClient(b.URL(), testHeaders)
	_, err := c.SubmitChat(context.Background(), "s1", "hello")
	require.Error(t, err)

	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 503, statusErr.Code)
	assert.Equal(t, "agent unavailable", statusErr.Detail)
}

func TestClient_GetTask(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()
	b.Steps = []testutil.PollStep{
		{Status: api.TaskProcessing},
		{Status: api.TaskCompleted, Result: &api.TaskResult{
			SessionID: "s2", Result: "done", NumTurns: 3, TotalCostUSD: 0.01,
		}},
	}

	c := api.NewClient(b.URL(), testHeaders)

	task, err := c.GetTask(context.Background(), "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, api.TaskProcessing, task.Status)
	assert.Nil(t, task.Result)

	task, err = c.GetTask(context.Background(), "s1", "t1")
	require.NoError(t, err)
	assert.Equal(t, api.TaskCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, "s2", task.Result.SessionID)
	assert.Equal(t, 3, task.Result.NumTurns)
}

func TestClient_DeleteTask(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()

	c := api.NewClient(b.URL(), testHeaders)
	require.NoError(t, c.DeleteTask(context.Background(), "s1", "t9"))
	assert.Equal(t, 1, b.DeleteCalls())
	assert.Equal(t, "t9", b.LastDeletedTask())
}

func TestClient_GetConfig(t *testing.T) {
	b := testutil.NewBackend()
	defer b.Close()
	b.ProjectPath = "/srv/project"

	c := api.NewClient(b.URL(), testHeaders)
	pc, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/srv/project", pc.ProjectPath)
}

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "backend returned 500: boom", (&api.StatusError{Code: 500, Detail: "boom"}).Error())
	assert.Equal(t, "backend returned 500", (&api.StatusError{Code: 500}).Error())
}
