package maintenance

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/listkeep/internal/database"
	"github.com/dukerupert/listkeep/internal/middleware"
	"github.com/dukerupert/listkeep/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) DeleteExpired() (int64, error) {
	f.calls++
	return 3, f.err
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Cleanup() int {
	f.calls++
	return 0
}

func TestStartRegistersJobsAndPurgesOnce(t *testing.T) {
	purger := &fakePurger{}
	m := New(purger, &fakeSweeper{}, slog.Default())

	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Len(t, m.cron.Entries(), 2)
	assert.Equal(t, 1, purger.calls)
}

type fakeBackuper struct {
	runs, cleanups int
	err            error
}

func (f *fakeBackuper) RunNow(context.Context) (string, error) {
	f.runs++
	if f.err != nil {
		return "", f.err
	}
	return "listkeep/backup-x.db.enc", nil
}

func (f *fakeBackuper) Cleanup(context.Context) (int, error) {
	f.cleanups++
	return 1, nil
}

func TestScheduleBackupsAddsJob(t *testing.T) {
	m := New(&fakePurger{}, &fakeSweeper{}, slog.Default())
	m.ScheduleBackups(&fakeBackuper{}, "0 0 3 * * *")

	require.NoError(t, m.Start())
	defer m.Stop()
	assert.Len(t, m.cron.Entries(), 3)
}

func TestScheduleBackupsRejectsBadSchedule(t *testing.T) {
	m := New(&fakePurger{}, &fakeSweeper{}, slog.Default())
	m.ScheduleBackups(&fakeBackuper{}, "every night")

	err := m.Start()
	assert.ErrorContains(t, err, "every night")
}

func TestRunBackup(t *testing.T) {
	var buf bytes.Buffer
	b := &fakeBackuper{}
	m := New(&fakePurger{}, &fakeSweeper{}, slog.New(slog.NewTextHandler(&buf, nil)))
	m.ScheduleBackups(b, "0 0 3 * * *")

	m.RunBackup()
	assert.Equal(t, 1, b.runs)
	assert.Equal(t, 1, b.cleanups)
	assert.Contains(t, buf.String(), "backup complete")

	buf.Reset()
	b.err = errors.New("bucket gone")
	m.RunBackup()
	assert.Equal(t, 2, b.runs)
	assert.Equal(t, 1, b.cleanups, "prune is skipped after a failed upload")
	assert.Contains(t, buf.String(), "bucket gone")
}

func TestPurgeSessionsLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	purger := &fakePurger{err: errors.New("disk full")}
	m := New(purger, &fakeSweeper{}, slog.New(slog.NewTextHandler(&buf, nil)))

	m.PurgeSessions()
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestJobsAgainstRealStores(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db, []byte("k"))
	u, err := users.UpsertByProvider("test", "alice", "Alice", "")
	require.NoError(t, err)

	expired, err := sessions.Create(u.ID, -time.Minute)
	require.NoError(t, err)
	live, err := sessions.Create(u.ID, time.Hour)
	require.NoError(t, err)

	limiter := middleware.NewRateLimiter(5, time.Nanosecond)
	limiter.Allow("sign-in:203.0.113.1")
	time.Sleep(time.Millisecond)

	m := New(sessions, limiter, slog.Default())
	m.PurgeSessions()
	m.SweepRateLimits()

	got, err := sessions.GetByToken(expired.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = sessions.GetByToken(live.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 0, limiter.Len())
}
