package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/providers/llm"
	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
)

// stubChatService hands back canned turns and records what gets
// finalized, so tests can assert which replies were persisted.
type stubChatService struct {
	mu        sync.Mutex
	finalized []string
}

func (s *stubChatService) Send(context.Context, string, []llm.Message) (*services.TurnResult, error) {
	return nil, errors.New("not used over websocket")
}

func (s *stubChatService) Prepare(_ context.Context, _ string, history []llm.Message) (*services.Turn, error) {
	return &services.Turn{System: "coach", Messages: history}, nil
}

func (s *stubChatService) Finalize(_ context.Context, _ string, raw string) (*services.TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = append(s.finalized, raw)
	return &services.TurnResult{MessageID: "m1", Content: raw}, nil
}

func (s *stubChatService) History(context.Context, string, int) ([]models.ChatMessage, error) {
	return nil, nil
}

func (s *stubChatService) Reset(context.Context, string) (int64, error) { return 0, nil }

func (s *stubChatService) Conclude(context.Context, string) (*services.ConcludeResult, error) {
	return nil, nil
}

func (s *stubChatService) finalizedReplies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.finalized...)
}

// stubStreamProvider emits its chunks, then optionally an error.
type stubStreamProvider struct {
	chunks []string
	err    error
}

func (p *stubStreamProvider) Complete(context.Context, string, []llm.Message) (string, error) {
	return "", errors.New("not used over websocket")
}

func (p *stubStreamProvider) Embed(context.Context, string) ([]float32, error) { return nil, nil }

func (p *stubStreamProvider) StreamAnswer(context.Context, string, []llm.Message) (<-chan string, <-chan error) {
	out := make(chan string, len(p.chunks)+1)
	errs := make(chan error, 1)
	for _, c := range p.chunks {
		out <- c
	}
	if p.err != nil {
		errs <- p.err
	}
	close(out)
	close(errs)
	return out, errs
}

func (p *stubStreamProvider) Close() error { return nil }

func newWSTestServer(t *testing.T, chat services.ChatService, provider llm.Provider) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWSHandler(chat, provider)
	r.GET("/ws/chat", func(c *gin.Context) {
		c.Set("user_id", "11111111-1111-1111-1111-111111111111")
		h.ChatWS(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, content string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(wsClientMsg{
		Type:     "send",
		Messages: []chatMessageIn{{Role: "user", Content: content}},
	}))
}

func readFrame(t *testing.T, conn *websocket.Conn) wsServerMsg {
	t.Helper()
	var msg wsServerMsg
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestChatWSStreamsThenFinalizes(t *testing.T) {
	chat := &stubChatService{}
	srv := newWSTestServer(t, chat, &stubStreamProvider{chunks: []string{"Keep ", "going."}})
	conn := dialWS(t, srv)

	sendFrame(t, conn, "hello")

	assert.Equal(t, wsServerMsg{Type: "chunk", Content: "Keep "}, readFrame(t, conn))
	assert.Equal(t, wsServerMsg{Type: "chunk", Content: "going."}, readFrame(t, conn))

	final := readFrame(t, conn)
	assert.Equal(t, "final", final.Type)
	assert.Equal(t, "Keep going.", final.Content)
	assert.Equal(t, []string{"Keep going."}, chat.finalizedReplies())
}

func TestChatWSMidStreamFailureIsNotFinalized(t *testing.T) {
	chat := &stubChatService{}
	srv := newWSTestServer(t, chat, &stubStreamProvider{
		chunks: []string{"Here is the start of a pl"},
		err:    errors.New("stream cut off"),
	})
	conn := dialWS(t, srv)

	sendFrame(t, conn, "hello")

	// The chunk that made it out is followed by an error frame, never a
	// final one, and the truncated text is not persisted.
	assert.Equal(t, "chunk", readFrame(t, conn).Type)

	errFrame := readFrame(t, conn)
	assert.Equal(t, "error", errFrame.Type)
	assert.Equal(t, utils.CodeUnavailable, errFrame.Code)

	assert.Empty(t, chat.finalizedReplies())

	// The connection is still usable for the next turn.
	sendFrame(t, conn, "retry")
	assert.Equal(t, "chunk", readFrame(t, conn).Type)
}

func TestChatWSRejectsMalformedFrame(t *testing.T) {
	chat := &stubChatService{}
	srv := newWSTestServer(t, chat, &stubStreamProvider{chunks: []string{"ok"}})
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "send"}`)))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, utils.CodeInvalidArgument, frame.Code)
	assert.Empty(t, chat.finalizedReplies())
}
