package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/careerpilot/backend/internal/providers/llm"
	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler streams chat turns: the assistant reply goes out chunk by
// chunk, then the interpreted final message (with action/proposal info)
// closes the turn.
type WSHandler struct {
	chat     services.ChatService
	provider llm.Provider
	upgrader websocket.Upgrader
}

func NewWSHandler(chat services.ChatService, provider llm.Provider) *WSHandler {
	return &WSHandler{
		chat:     chat,
		provider: provider,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type     string          `json:"type"` // "send"
	Messages []chatMessageIn `json:"messages,omitempty"`
}

type wsServerMsg struct {
	Type string `json:"type"` // "chunk" | "final" | "error"

	Content string `json:"content,omitempty"`

	// final only
	MessageID  string `json:"message_id,omitempty"`
	IsAction   bool   `json:"is_action,omitempty"`
	ProposalID string `json:"proposal_id,omitempty"`

	// error only
	Code utils.Code `json:"code,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) ChatWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx := c.Request.Context()

	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "send" || len(msg.Messages) == 0 {
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Content: "expected a send frame with messages"})
			continue
		}

		history := make([]llm.Message, 0, len(msg.Messages))
		for _, m := range msg.Messages {
			history = append(history, llm.Message{Role: m.Role, Content: m.Content})
		}

		turn, terr := h.chat.Prepare(ctx, userID, history)
		if terr != nil {
			_ = wc.writeJSON(wsErr(terr))
			continue
		}

		chunks, errs := h.provider.StreamAnswer(ctx, turn.System, turn.Messages)

		var full strings.Builder
		for chunk := range chunks {
			full.WriteString(chunk)
			if err := wc.writeJSON(wsServerMsg{Type: "chunk", Content: chunk}); err != nil {
				return
			}
		}
		// A stream error means the reply is truncated even when chunks
		// already went out; never finalize a cut-off reply (it may hold a
		// half-emitted block).
		if serr := <-errs; serr != nil {
			_ = wc.writeJSON(wsErr(utils.E(utils.CodeUnavailable, "WSHandler.ChatWS", "coach is unavailable right now", serr)))
			continue
		}

		res, ferr := h.chat.Finalize(ctx, userID, full.String())
		if ferr != nil {
			_ = wc.writeJSON(wsErr(ferr))
			continue
		}

		_ = wc.writeJSON(wsServerMsg{
			Type:       "final",
			Content:    res.Content,
			MessageID:  res.MessageID,
			IsAction:   res.IsAction,
			ProposalID: res.ProposalID,
		})
	}
}

func wsErr(err error) wsServerMsg {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return wsServerMsg{Type: "error", Code: ae.Code, Content: ae.Message}
	}
	return wsServerMsg{Type: "error", Code: utils.CodeInternal, Content: "internal error"}
}
