package store

import (
	"testing"
	"time"

	"github.com/dukerupert/listkeep/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db, []byte("test-key")), NewUserStore(db)
}

func TestSessionCreate(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, err := us.UpsertByProvider("google", "sub-1", "Alice", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := ss.Create(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %q, want %q", sess.UserID, u.ID)
	}

	var stored string
	if err := ss.db.QueryRow(`SELECT token_hash FROM sessions WHERE id = ?`, sess.ID).Scan(&stored); err != nil {
		t.Fatalf("read hash: %v", err)
	}
	if stored == sess.Token {
		t.Error("token must not be stored in plaintext")
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.UpsertByProvider("google", "sub-1", "Alice", "")
	created, _ := ss.Create(u.ID, time.Hour)

	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID {
		t.Errorf("id = %d, want %d", sess.ID, created.ID)
	}
}

func TestSessionGetByTokenNotFound(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	sess, err := ss.GetByToken("nonexistent")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for nonexistent token")
	}
}

func TestSessionExpired(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.UpsertByProvider("google", "sub-1", "Alice", "")
	expired, _ := ss.Create(u.ID, -time.Minute)
	live, _ := ss.Create(u.ID, time.Hour)

	if sess, _ := ss.GetByToken(expired.Token); sess != nil {
		t.Error("expected expired session to be ignored")
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if sess, _ := ss.GetByToken(live.Token); sess == nil {
		t.Error("live session should survive cleanup")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)

	u, _ := us.UpsertByProvider("google", "sub-1", "Alice", "")
	sess, _ := ss.Create(u.ID, time.Hour)

	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, _ := ss.GetByToken(sess.Token)
	if got != nil {
		t.Error("expected nil after delete")
	}
}
