package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/listkeep/internal/auth"
	"github.com/dukerupert/listkeep/internal/config"
	"github.com/dukerupert/listkeep/internal/database"
	"github.com/dukerupert/listkeep/internal/identity"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfProvider sends the browser straight back to the server's callback,
// as if the person approved immediately.
type selfProvider struct {
	base string
	code string
}

func (p *selfProvider) Name() string { return "self" }

func (p *selfProvider) AuthURL(state string) string {
	q := url.Values{"state": {state}}
	if p.code == "" {
		q.Set("error", "access_denied")
	} else {
		q.Set("code", p.code)
	}
	return p.base + "/auth/callback?" + q.Encode()
}

func (p *selfProvider) Exchange(_ context.Context, code string) (*identity.Identity, error) {
	return &identity.Identity{Subject: code, Name: "Ada"}, nil
}

type harness struct {
	t        *testing.T
	provider *selfProvider
	cfg      *config.ClientConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	keys, err := auth.DeriveKeys("cli-test")
	require.NoError(t, err)

	provider := &selfProvider{code: "ada"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New(db, server.Options{Provider: provider, Keys: keys, SessionTTL: time.Hour}, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	provider.base = ts.URL

	return &harness{
		t:        t,
		provider: provider,
		cfg: &config.ClientConfig{
			ServerURL:       ts.URL,
			CredentialsPath: filepath.Join(t.TempDir(), "credentials.json"),
		},
	}
}

// run executes lk with args. The prompt plays the browser by following the
// login redirects.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	app := &App{
		Config: h.cfg,
		Out:    &out,
		Err:    io.Discard,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Prompt: func(loginURL string) {
			go func() {
				resp, err := http.Get(loginURL)
				if err == nil {
					resp.Body.Close()
				}
			}()
		},
	}
	cmd := NewRootCmd(app)
	cmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "lk %s", strings.Join(args, " "))
	return out
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("todo", "list")
	assert.ErrorIs(t, err, errNotSignedIn)

	out := h.mustRun("whoami")
	assert.Contains(t, out, "not signed in")
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("login")
	assert.Contains(t, out, "signed in as Ada")

	out = h.mustRun("whoami")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, h.cfg.ServerURL)

	h.mustRun("logout")
	_, err := h.run("todo", "list")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestLoginCancelled(t *testing.T) {
	h := newHarness(t)
	h.provider.code = ""

	out := h.mustRun("login")
	assert.Contains(t, out, "cancelled")
	assert.Contains(t, h.mustRun("whoami"), "not signed in")
}

func TestTodoCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login")

	h.mustRun("todo", "add", "Buy", "milk", "--priority", "high", "--category", "hobby")
	h.mustRun("todo", "add", "Write report", "-c", "work")

	out := h.mustRun("todo", "list")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "[high] hobby")
	assert.Contains(t, out, "Write report")

	out = h.mustRun("todo", "list", "--filter", "work")
	assert.NotContains(t, out, "Buy milk")
	out = h.mustRun("todo", "list", "--search", "MILK")
	assert.NotContains(t, out, "Write report")

	id := firstID(t, h.mustRun("todo", "list", "--search", "milk"))
	h.mustRun("todo", "toggle", id)
	h.mustRun("todo", "rename", id, "Buy oat milk")
	h.mustRun("todo", "priority", id, "low")
	h.mustRun("todo", "category", id, "study")

	out = h.mustRun("todo", "list", "--filter", "active")
	assert.NotContains(t, out, "milk")
	out = h.mustRun("todo", "list", "--filter", "study")
	assert.Contains(t, out, "☑")
	assert.Contains(t, out, "Buy oat milk")
	assert.Contains(t, out, "[low] study")

	out = h.mustRun("todo", "stats")
	assert.Contains(t, out, "1/2")

	h.mustRun("todo", "rm", id)
	out = h.mustRun("todo", "list")
	assert.NotContains(t, out, "milk")
}

func TestTodoArgumentErrors(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login")

	_, err := h.run("todo", "add", "x", "--priority", "urgent")
	assert.ErrorContains(t, err, "unknown priority")

	_, err = h.run("todo", "toggle", "does-not-exist")
	assert.ErrorContains(t, err, "nothing matches")

	_, err = h.run("todo", "list", "--filter", "someday")
	assert.ErrorContains(t, err, "unknown filter")
}

func TestJournalCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login")

	h.mustRun("journal", "add", "Monday", "--content", "rain all day")
	out := h.mustRun("journal", "list")
	assert.Contains(t, out, model.DefaultMood)
	assert.Contains(t, out, "rain all day")

	id := strings.Fields(out)[1]
	h.mustRun("journal", "edit", id, "--mood", "🌧")
	out = h.mustRun("journal", "list")
	assert.Contains(t, out, "🌧")
	assert.Contains(t, out, "Monday", "unset flags keep their value")
	assert.Contains(t, out, "rain all day")

	h.mustRun("journal", "rm", id)
	assert.Contains(t, h.mustRun("journal", "list"), "no journal entries")
}

func TestJournalListFilters(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login")

	h.mustRun("journal", "add", "Morning run", "--mood", "🔥")
	h.mustRun("journal", "add", "Rainy morning", "--mood", "😔")
	h.mustRun("journal", "add", "Late night", "--mood", "🔥")

	out := h.mustRun("journal", "list", "--search", "MORNING")
	assert.Contains(t, out, "Morning run")
	assert.Contains(t, out, "Rainy morning")
	assert.NotContains(t, out, "Late night")

	out = h.mustRun("journal", "list", "--search", "morning", "--mood", "🔥")
	assert.Contains(t, out, "Morning run")
	assert.NotContains(t, out, "Rainy morning")
	assert.NotContains(t, out, "Late night")

	out = h.mustRun("journal", "list", "-m", "🔥")
	assert.Less(t, strings.Index(out, "Late night"), strings.Index(out, "Morning run"), "newest first")

	assert.Contains(t, h.mustRun("journal", "list", "-m", "⭐"), "no journal entries")

	_, err := h.run("journal", "list", "--mood", "happy")
	assert.ErrorContains(t, err, "unknown mood")
}

func TestResolve(t *testing.T) {
	ids := []string{"abc123", "abd456", "xyz"}
	self := func(s string) string { return s }

	got, err := resolve(ids, "abc", self)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	got, err = resolve(ids, "xyz", self)
	require.NoError(t, err)
	assert.Equal(t, "xyz", got)

	_, err = resolve(ids, "ab", self)
	assert.ErrorContains(t, err, "matches 2")

	_, err = resolve(ids, " ", self)
	assert.Error(t, err)
}

// firstID pulls the short id off the first line of `todo list` output.
func firstID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2, out)
	return fields[1]
}
