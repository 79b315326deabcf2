package handlers

import (
	"net/http"

	"github.com/careerpilot/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type RoadmapHandler struct {
	svc services.RoadmapService
}

func NewRoadmapHandler(svc services.RoadmapService) *RoadmapHandler {
	return &RoadmapHandler{svc: svc}
}

func (h *RoadmapHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rm, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rm)
}

func (h *RoadmapHandler) Generate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rm, err := h.svc.Generate(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rm)
}
