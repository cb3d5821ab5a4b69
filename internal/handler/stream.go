package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/listkeep/internal/auth"
	"github.com/dukerupert/listkeep/internal/collection"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/websocket"
)

var errSnapshotUnavailable = errors.New("snapshot unavailable")

// StreamHandler serves full-list snapshot streams over WebSocket.
type StreamHandler struct {
	todos    *collection.Todos
	journals *collection.Journals
	logger   *slog.Logger
}

func NewStreamHandler(todos *collection.Todos, journals *collection.Journals, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{todos: todos, journals: journals, logger: logger}
}

func (h *StreamHandler) Todos(w http.ResponseWriter, r *http.Request) {
	serveSnapshots[model.Item](w, r, h.logger, "todo", h.todos.Subscribe)
}

func (h *StreamHandler) Journals(w http.ResponseWriter, r *http.Request) {
	serveSnapshots[model.JournalEntry](w, r, h.logger, "journal", h.journals.Subscribe)
}

// serveSnapshots upgrades the request and writes one frame per snapshot
// until either side goes away.
func serveSnapshots[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, entity string,
	subscribe func(context.Context, string) *collection.Subscription[T]) {
	userID := auth.UserID(r.Context())
	if want := r.URL.Query().Get("user_id"); want != "" && want != userID {
		writeError(w, http.StatusForbidden, "token does not belong to user_id")
		return
	}

	conn, err := ws.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := websocket.NewClient(conn)
	go func() {
		client.Run(ctx)
		cancel()
	}()

	sub := subscribe(ctx, userID)
	defer sub.Cancel()

	logger.Debug("snapshot stream opened", "entity", entity, "user_id", userID)
	for snap := range sub.C() {
		var frame websocket.Frame
		if snap.Err != nil {
			// list errors are logged here; the client only learns the
			// snapshot is unavailable
			logger.Error("snapshot", "entity", entity, "user_id", userID, "error", snap.Err)
			frame = websocket.NewErrorFrame(entity, errSnapshotUnavailable)
		} else if frame, err = websocket.NewSnapshotFrame(entity, snap.Items); err != nil {
			logger.Error("encode snapshot", "entity", entity, "error", err)
			frame = websocket.NewErrorFrame(entity, errSnapshotUnavailable)
		}

		data, err := json.Marshal(frame)
		if err != nil {
			logger.Error("marshal frame", "error", err)
			continue
		}
		if !client.Send(ctx, data) {
			break
		}
	}
	logger.Debug("snapshot stream closed", "entity", entity, "user_id", userID)
	conn.Close(ws.StatusNormalClosure, "")
}
