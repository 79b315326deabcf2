package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	CurrentRole     *string `json:"current_role,omitempty"`
	TargetRole      *string `json:"target_role,omitempty"`
	ExperienceLevel *string `json:"experience_level,omitempty"`

	Skills *[]string `json:"skills,omitempty"`

	ResumeText *string `json:"resume_text,omitempty"`

	NotificationPrefs *json.RawMessage `json:"notification_prefs,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.Update", "invalid request body", err))
		return
	}

	// Load existing (if not found => create new)
	existing, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			existing = &models.Profile{UserID: userID}
		} else {
			writeError(c, err)
			return
		}
	}

	// Apply partial updates
	if req.CurrentRole != nil {
		existing.CurrentRole = *req.CurrentRole
	}
	if req.TargetRole != nil {
		existing.TargetRole = *req.TargetRole
	}
	if req.ExperienceLevel != nil {
		existing.ExperienceLevel = *req.ExperienceLevel
	}
	if req.Skills != nil {
		existing.Skills = *req.Skills
	}
	if req.ResumeText != nil {
		existing.ResumeText = *req.ResumeText
	}
	if req.NotificationPrefs != nil {
		existing.NotificationPrefs = datatypes.JSON(*req.NotificationPrefs)
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}
