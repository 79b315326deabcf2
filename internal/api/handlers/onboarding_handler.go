package handlers

import (
	"net/http"

	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	svc services.OnboardingService
}

func NewOnboardingHandler(svc services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{svc: svc}
}

type OnboardingMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *OnboardingHandler) Message(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req OnboardingMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "OnboardingHandler.Message", "invalid request body", err))
		return
	}

	res, err := h.svc.Message(c.Request.Context(), userID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
