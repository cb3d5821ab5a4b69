package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dukerupert/listkeep/internal/database"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	data     []byte
	modified time.Time
}

// memStore is an in-memory objectStore. List pages hold two keys so
// pagination is exercised.
type memStore struct {
	mu      sync.Mutex
	objects map[string]object
	now     func() time.Time
	putErr  error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{objects: make(map[string]object), now: now}
}

func (m *memStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = object{data: data, modified: m.now()}
	return &s3.PutObjectOutput{}, nil
}

func (m *memStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (m *memStore) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memStore) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for i, k := range keys {
		if i == 2 {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(keys[i-1])
			break
		}
		mod := m.objects[k].modified
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: &mod})
	}
	return out, nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T, retention time.Duration) (*Manager, *memStore, *clock, *sql.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "live.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &clock{t: time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)}
	objects := newMemStore(c.now)
	m := newManager(Config{
		S3:         S3Config{Bucket: "bkt"},
		Passphrase: "correct horse",
		Retention:  retention,
	}, db, objects, slog.Default())
	m.now = c.now
	return m, objects, c, db
}

func TestSealOpen(t *testing.T) {
	sealed, err := Seal([]byte("hello"), "pw")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "hello")

	plain, err := Open(sealed, "pw")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plain))

	_, err = Open(sealed, "other")
	assert.ErrorIs(t, err, ErrDecrypt)

	sealed[len(sealed)-1] ^= 0xff
	_, err = Open(sealed, "pw")
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Open([]byte("short"), "pw")
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Seal([]byte("x"), "")
	assert.Error(t, err)
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, err := Seal([]byte("same"), "pw")
	require.NoError(t, err)
	b, err := Seal([]byte("same"), "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a[:saltSize], b[:saltSize])
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}}.Enabled())
	assert.True(t, Config{S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}, Passphrase: "p"}.Enabled())

	_, err := NewManager(Config{}, nil, slog.Default())
	assert.Error(t, err)
}

func TestRunNowAndRestore(t *testing.T) {
	m, objects, _, db := setup(t, 0)
	ctx := context.Background()

	items := store.NewItemStore(db)
	_, err := items.Create("u1", "survive the restore", model.PriorityHigh, model.CategoryWork)
	require.NoError(t, err)

	key, err := m.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, "listkeep/backup-2026-03-01T030000Z.db.enc", key)
	assert.Equal(t, []string{key}, objects.keys())

	dst := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, m.Restore(ctx, key, dst))

	restored, err := database.Open(dst)
	require.NoError(t, err)
	defer restored.Close()
	got, err := store.NewItemStore(restored).ListByUser("u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "survive the restore", got[0].Title)
}

func TestRestoreWrongPassphrase(t *testing.T) {
	m, _, _, _ := setup(t, 0)
	ctx := context.Background()

	key, err := m.RunNow(ctx)
	require.NoError(t, err)

	m.passphrase = "guess"
	err = m.Restore(ctx, key, filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestRunNowUploadFailure(t *testing.T) {
	m, objects, _, _ := setup(t, 0)
	objects.putErr = errors.New("bucket gone")

	_, err := m.RunNow(context.Background())
	assert.ErrorContains(t, err, "bucket gone")
}

func TestCleanupHonorsRetention(t *testing.T) {
	m, objects, c, _ := setup(t, 48*time.Hour)
	ctx := context.Background()

	var keys []string
	for i := 0; i < 5; i++ {
		key, err := m.RunNow(ctx)
		require.NoError(t, err)
		keys = append(keys, key)
		c.t = c.t.Add(24 * time.Hour)
	}
	// an object outside the prefix is never touched
	objects.objects["elsewhere/file"] = object{modified: time.Time{}}

	removed, err := m.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, append([]string{"elsewhere/file"}, keys[3:]...), objects.keys())
}

func TestCleanupWithoutRetentionKeepsEverything(t *testing.T) {
	m, objects, _, _ := setup(t, 0)
	_, err := m.RunNow(context.Background())
	require.NoError(t, err)

	removed, err := m.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, objects.keys(), 1)
}
