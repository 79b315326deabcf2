package handlers

import (
	"net/http"

	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

type ActionHandler struct {
	svc services.ActionService
}

func NewActionHandler(svc services.ActionService) *ActionHandler {
	return &ActionHandler{svc: svc}
}

type ApproveActionRequest struct {
	ProposalID string `json:"proposal_id" binding:"required"`
}

// Approve applies a user-approved action proposal. Soft failures (no
// matching milestone, unknown action type) come back as 200 with
// success=false; parse and validation failures are real errors.
func (h *ActionHandler) Approve(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req ApproveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ActionHandler.Approve", "invalid request body", err))
		return
	}

	res, err := h.svc.Approve(c.Request.Context(), userID, req.ProposalID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
