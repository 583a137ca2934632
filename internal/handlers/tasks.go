package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

type createTaskRequest struct {
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Deadline      *string `json:"deadline"`
	AssigneeEmail *string `json:"assigneeEmail"`
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), session.Actor(), services.TaskListFilter{
		Status: c.Query("status"),
		SortBy: c.Query("sortBy"),
		Order:  c.Query("order"),
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) BrowseTasks(c *gin.Context) {
	if _, ok := currentSession(c); !ok {
		return
	}

	tasks, err := h.taskService.Browse(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) ListAllTasks(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListAll(c.Request.Context(), session.Actor())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), session.Actor(), services.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Deadline:      req.Deadline,
		AssigneeEmail: req.AssigneeEmail,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), session.Actor(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var body map[string]json.RawMessage
	if !bindJSON(c, &body) {
		return
	}
	patch, err := decodeTaskPatch(body)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), session.Actor(), id, patch)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), session.Actor(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// decodeTaskPatch keeps track of which keys were sent so that an explicit
// null can clear a field. Unknown keys are passed through for the policy to
// reject.
func decodeTaskPatch(body map[string]json.RawMessage) (services.TaskPatch, error) {
	patch := services.TaskPatch{}
	targets := map[string]**string{
		policy.FieldTitle:          &patch.Title,
		policy.FieldDescription:    &patch.Description,
		policy.FieldDeadline:       &patch.Deadline,
		policy.FieldStatus:         &patch.Status,
		policy.FieldAssignedUserID: &patch.AssignedUserID,
		policy.FieldAssigneeEmail:  &patch.AssigneeEmail,
	}

	for key, raw := range body {
		patch.Fields = append(patch.Fields, key)
		target, known := targets[key]
		if !known || string(raw) == "null" {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return services.TaskPatch{}, apperrors.Validation(strconv.Quote(key) + " must be a string or null")
		}
		*target = &value
	}
	sort.Strings(patch.Fields)
	return patch, nil
}
