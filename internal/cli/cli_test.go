package cli

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/handler"
	"taskflow/internal/realtime"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCLIEnv(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := service.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "cli-test"
	hub := realtime.NewHub()
	srv := httptest.NewServer(handler.NewRouter(cfg, service.New(db, cfg, hub), hub))
	t.Cleanup(srv.Close)

	home := t.TempDir()
	return func(args ...string) (string, error) {
		cmd := NewRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--home", home, "--server", srv.URL}, args...))
		err := cmd.Execute()
		return out.String(), err
	}
}

func TestCLI_TaskWorkflow(t *testing.T) {
	run := newCLIEnv(t)

	out, err := run("register", "--email", "ann@example.com", "--password", "secret1", "--name", "Ann")
	require.NoError(t, err)
	assert.Contains(t, out, "welcome, Ann")

	out, err = run("spaces", "create", "Marketing Team")
	require.NoError(t, err)
	assert.Contains(t, out, "created Marketing Team, join code")

	out, err = run("add", "Draft", "brief", "--priority", "high", "--due", "2025-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "created #1 Draft brief")

	out, err = run("add", "Publish", "brief", "--blocked-by", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "created #2 Publish brief")

	out, err = run("status", "2", "done")
	require.Error(t, err)
	assert.Contains(t, out, "blocked")

	out, err = run("status", "1", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 is Done")

	out, err = run("comment", "1", "looks", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "comment added")

	out, err = run("show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 Draft brief")
	assert.Contains(t, out, "looks good")

	out, err = run("tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "Publish brief")

	out, err = run("rm", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted #2")
}

func TestCLI_PersonalAndSession(t *testing.T) {
	run := newCLIEnv(t)
	_, err := run("register", "--email", "bo@example.com", "--password", "secret1", "--name", "Bo")
	require.NoError(t, err)

	_, err = run("daily", "add", "water", "plants", "-p", "low")
	require.NoError(t, err)
	out, err := run("daily")
	require.NoError(t, err)
	assert.Contains(t, out, "water plants")

	_, err = run("scratch", "call", "the", "printer", "guy")
	require.NoError(t, err)
	out, err = run("scratch")
	require.NoError(t, err)
	assert.Contains(t, out, "call the printer guy")

	out, err = run("prefs", "--monday", "--default-view", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default view list, weeks start on Monday")

	_, err = run("prefs", "--default-view", "kanban")
	assert.ErrorContains(t, err, "unknown view")

	out, err = run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Bo <bo@example.com>")

	out, err = run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "signed out")

	_, err = run("whoami")
	assert.ErrorContains(t, err, "not signed in")
}

func TestCLI_UseUnknownSpace(t *testing.T) {
	run := newCLIEnv(t)
	_, err := run("register", "--email", "cy@example.com", "--password", "secret1", "--name", "Cy")
	require.NoError(t, err)

	_, err = run("use", "nowhere")
	assert.ErrorContains(t, err, "unknown space")

	_, err = run("board")
	assert.ErrorContains(t, err, "no space selected")
}

func TestCLI_ScratchDebounce(t *testing.T) {
	app := &App{}
	assert.Equal(t, config.Default().Sync.ScratchpadDebounce, app.scratchpadDebounce())
	app.state.ScratchpadDebounce = 250 * time.Millisecond
	assert.Equal(t, 250*time.Millisecond, app.scratchpadDebounce())

	run := newCLIEnv(t)
	_, err := run("register", "--email", "di@example.com", "--password", "secret1", "--name", "Di")
	require.NoError(t, err)

	_, err = run("scratch", "--debounce", "0s", "nothing")
	assert.ErrorContains(t, err, "debounce must be positive")

	_, err = run("scratch", "--debounce", "250ms", "quick", "note")
	require.NoError(t, err)
	out, err := run("scratch")
	require.NoError(t, err)
	assert.Contains(t, out, "quick note")
}
