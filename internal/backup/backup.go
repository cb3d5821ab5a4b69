// Package backup ships encrypted snapshots of the SQLite database to
// S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"
)

const keyLayout = "2006-01-02T150405Z"

// objectStore is the slice of the S3 API backups use.
type objectStore interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Config struct {
	S3         S3Config
	Prefix     string
	Passphrase string
	// Retention is how long snapshots are kept; zero keeps them forever.
	Retention time.Duration
}

// Enabled reports whether enough is configured to take backups.
func (c Config) Enabled() bool {
	return c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != "" && c.Passphrase != ""
}

// Manager takes, prunes and restores snapshots.
type Manager struct {
	db         *sql.DB
	client     objectStore
	bucket     string
	prefix     string
	passphrase string
	retention  time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) (*Manager, error) {
	if !cfg.Enabled() {
		return nil, errors.New("backup: bucket, credentials and passphrase are required")
	}
	return newManager(cfg, db, newS3Client(cfg.S3), logger), nil
}

func newManager(cfg Config, db *sql.DB, client objectStore, logger *slog.Logger) *Manager {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "listkeep"
	}
	return &Manager{
		db:         db,
		client:     client,
		bucket:     cfg.S3.Bucket,
		prefix:     prefix,
		passphrase: cfg.Passphrase,
		retention:  cfg.Retention,
		logger:     logger,
		now:        time.Now,
	}
}

func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// RunNow snapshots the database, encrypts it and uploads it. It returns the
// object key.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	start := m.now()
	tmpDir, err := os.MkdirTemp("", "listkeep-backup-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// VACUUM INTO writes a consistent copy without pausing writers.
	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, m.passphrase)
	if err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/backup-%s.db.enc", m.prefix, start.UTC().Format(keyLayout))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed), "duration", m.now().Sub(start))
	return key, nil
}

// Cleanup deletes snapshots older than the retention period and returns how
// many it removed.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}
	cutoff := m.now().Add(-m.retention)

	removed := 0
	var token *string
	for {
		out, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(m.bucket),
			Prefix:            aws.String(m.prefix + "/backup-"),
			ContinuationToken: token,
		})
		if err != nil {
			return removed, fmt.Errorf("list snapshots: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(m.bucket),
				Key:    obj.Key,
			}); err != nil {
				m.logger.Warn("delete old snapshot", "key", aws.ToString(obj.Key), "error", err)
				continue
			}
			removed++
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return removed, nil
}

// Restore downloads the snapshot at key, decrypts it, checks its integrity
// and writes it to dst. The server must not be running against dst.
func (m *Manager) Restore(ctx context.Context, key, dst string) error {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download snapshot: %w", err)
	}
	defer out.Body.Close()

	sealed, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	plaintext, err := Open(sealed, m.passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".restore"
	if err := os.WriteFile(tmp, plaintext, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := checkIntegrity(tmp); err != nil {
		os.Remove(tmp)
		return err
	}

	os.Remove(dst + "-wal")
	os.Remove(dst + "-shm")
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	m.logger.Info("backup restored", "key", key, "path", dst)
	return nil
}

func checkIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
