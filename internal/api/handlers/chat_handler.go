package handlers

import (
	"net/http"
	"strconv"

	"github.com/careerpilot/backend/internal/providers/llm"
	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	svc services.ChatService
}

func NewChatHandler(svc services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type chatMessageIn struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type SendChatRequest struct {
	Messages []chatMessageIn `json:"messages" binding:"required,min=1"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Send", "invalid request body", err))
		return
	}

	history := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	res, err := h.svc.Send(c.Request.Context(), userID, history)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := h.svc.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	// Repo returns DESC; clients want oldest first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	c.JSON(http.StatusOK, gin.H{"messages": rows})
}

func (h *ChatHandler) Reset(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	n, err := h.svc.Reset(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages_cleared": n})
}

func (h *ChatHandler) Conclude(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	res, err := h.svc.Conclude(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
