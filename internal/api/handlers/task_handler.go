package handlers

import (
	"net/http"
	"strconv"

	"github.com/careerpilot/backend/internal/models"
	"github.com/careerpilot/backend/internal/services"
	"github.com/careerpilot/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc services.TaskService
}

func NewTaskHandler(svc services.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var status models.TaskStatus
	switch s := c.Query("status"); s {
	case "":
	case string(models.TaskTodo), string(models.TaskDone):
		status = models.TaskStatus(s)
	default:
		writeError(c, utils.E(utils.CodeInvalidArgument, "TaskHandler.List", "invalid status filter", nil))
		return
	}

	limit := 100
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := h.svc.List(c.Request.Context(), userID, status, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": rows})
}

func (h *TaskHandler) Complete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	res, err := h.svc.Complete(c.Request.Context(), userID, c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
