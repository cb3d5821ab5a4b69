package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dukerupert/listkeep/internal/collection"
	lkws "github.com/dukerupert/listkeep/internal/websocket"
)

const readLimit = 4 << 20

// subscribe streams snapshots from a server snapshot endpoint, reconnecting
// with exponential backoff until ctx is cancelled. Connection failures are
// delivered as error snapshots. A rejected credential ends the stream.
func subscribe[T any](ctx context.Context, c *Client, path, entity, userID string) *collection.Subscription[T] {
	return collection.Stream(ctx, func(ctx context.Context, emit func(collection.Snapshot[T]) bool) {
		backoff := c.minBackoff
		for {
			delivered, err := streamOnce(ctx, c, path, entity, userID, emit)
			if ctx.Err() != nil {
				return
			}
			if delivered {
				backoff = c.minBackoff
			}
			if err != nil {
				c.logger.Warn("snapshot stream failed", "entity", entity, "retry_in", backoff, "error", err)
				if !emit(collection.Snapshot[T]{Err: err}) {
					return
				}
				if isPermanent(err) {
					return
				}
			}

			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			backoff = min(backoff*2, c.maxBackoff)
		}
	})
}

// streamOnce holds one connection open, emitting every snapshot frame. It
// reports whether any snapshot was delivered.
func streamOnce[T any](ctx context.Context, c *Client, path, entity, userID string, emit func(collection.Snapshot[T]) bool) (bool, error) {
	conn, resp, err := websocket.Dial(ctx, c.wsURL(path, userID), &websocket.DialOptions{
		HTTPHeader: c.authHeader(),
	})
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return false, &APIError{Status: resp.StatusCode, Message: "snapshot stream rejected"}
		}
		return false, fmt.Errorf("dial %s stream: %w", entity, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	delivered := false
	for {
		var f lkws.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if ctx.Err() != nil {
				return delivered, nil
			}
			return delivered, fmt.Errorf("read %s stream: %w", entity, err)
		}

		var snap collection.Snapshot[T]
		switch f.Type {
		case lkws.FrameSnapshot:
			snap.Items = lkws.DecodeItems[T](f, func(i int, err error) {
				c.logger.Warn("skipping malformed item", "entity", entity, "index", i, "error", err)
			})
		case lkws.FrameError:
			snap.Err = errors.New(f.Error)
		default:
			c.logger.Debug("ignoring frame", "type", f.Type)
			continue
		}
		if !emit(snap) {
			conn.Close(websocket.StatusNormalClosure, "")
			return true, nil
		}
		delivered = true
	}
}

func (c *Client) wsURL(path, userID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path + "?user_id=" + url.QueryEscape(userID)
}

func isPermanent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		return true
	}
	return false
}
