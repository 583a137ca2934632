package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskmaker/backend/internal/auth"
	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/handlers"
	"taskmaker/backend/internal/middleware"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func withSession(session *auth.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.SessionKey, session)
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

func newSession(role models.Role) *auth.Session {
	return &auth.Session{UserID: uuid.Must(uuid.NewV4()), Email: "user@example.com", Role: role, TokenID: "jti"}
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) apperrors.Response {
	t.Helper()
	var body apperrors.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func setupTaskHandler(session *auth.Session) (*MockTaskService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockTaskService)
	handler := handlers.NewTaskHandler(mockService)

	router := gin.New()
	router.Use(withSession(session))
	router.GET("/tasks", handler.ListTasks)
	router.GET("/tasks/browse", handler.BrowseTasks)
	router.POST("/tasks", handler.CreateTask)
	router.GET("/tasks/:id", handler.GetTask)
	router.PATCH("/tasks/:id", handler.UpdateTask)
	router.DELETE("/tasks/:id", handler.DeleteTask)
	router.GET("/admin/tasks", handler.ListAllTasks)
	return mockService, router
}

func TestCreateTask(t *testing.T) {
	session := newSession(models.RoleAdmin)
	mockService, router := setupTaskHandler(session)

	deadline := "2030-01-15"
	task := &models.Task{ID: uuid.Must(uuid.NewV4()), Title: "Write report", Status: models.TaskStatusPending, CreatedByID: session.UserID}
	mockService.On("Create", mock.Anything, session.Actor(), services.CreateTaskInput{
		Title:    "Write report",
		Deadline: &deadline,
	}).Return(task, nil)

	w := performRequest(router, http.MethodPost, "/tasks", map[string]interface{}{
		"title":    "Write report",
		"deadline": deadline,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var got models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, session.UserID, got.CreatedByID)
	mockService.AssertExpectations(t)
}

func TestCreateTaskInvalidJSON(t *testing.T) {
	mockService, router := setupTaskHandler(newSession(models.RoleAdmin))

	w := performRequest(router, http.MethodPost, "/tasks", "invalid json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, errorBody(t, w).Error)
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTaskForbidden(t *testing.T) {
	session := newSession(models.RoleUser)
	mockService, router := setupTaskHandler(session)
	mockService.On("Create", mock.Anything, session.Actor(), mock.Anything).Return(nil, apperrors.Forbidden("admin role required"))

	w := performRequest(router, http.MethodPost, "/tasks", map[string]string{"title": "x"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin role required", errorBody(t, w).Message)
}

func TestListTasksPassesFilter(t *testing.T) {
	session := newSession(models.RoleUser)
	mockService, router := setupTaskHandler(session)
	mockService.On("List", mock.Anything, session.Actor(), services.TaskListFilter{
		Status: "PENDING", SortBy: "deadline", Order: "asc",
	}).Return([]models.Task{{Title: "a"}, {Title: "b"}}, nil)

	w := performRequest(router, http.MethodGet, "/tasks?status=PENDING&sortBy=deadline&order=asc", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	mockService.AssertExpectations(t)
}

func TestBrowseTasks(t *testing.T) {
	mockService, router := setupTaskHandler(newSession(models.RoleUser))
	mockService.On("Browse", mock.Anything).Return([]models.Task{}, nil)

	w := performRequest(router, http.MethodGet, "/tasks/browse", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetTaskInvalidID(t *testing.T) {
	mockService, router := setupTaskHandler(newSession(models.RoleUser))

	w := performRequest(router, http.MethodGet, "/tasks/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTaskNotFound(t *testing.T) {
	session := newSession(models.RoleUser)
	mockService, router := setupTaskHandler(session)
	id := uuid.Must(uuid.NewV4())
	mockService.On("Get", mock.Anything, session.Actor(), id).Return(nil, apperrors.NotFound("task not found"))

	w := performRequest(router, http.MethodGet, "/tasks/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.Response{Error: "not_found", Message: "task not found"}, errorBody(t, w))
}

func TestUpdateTaskTracksPresentFields(t *testing.T) {
	session := newSession(models.RoleAdmin)
	mockService, router := setupTaskHandler(session)
	id := uuid.Must(uuid.NewV4())

	status := "COMPLETED"
	mockService.On("Update", mock.Anything, session.Actor(), id, services.TaskPatch{
		Fields: []string{policy.FieldDeadline, policy.FieldStatus},
		Status: &status,
	}).Return(&models.Task{ID: id, Status: models.TaskStatusCompleted}, nil)

	w := performRequest(router, http.MethodPatch, "/tasks/"+id.String(), `{"status":"COMPLETED","deadline":null}`)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestUpdateTaskRejectsNonStringValues(t *testing.T) {
	mockService, router := setupTaskHandler(newSession(models.RoleAdmin))

	w := performRequest(router, http.MethodPatch, "/tasks/"+uuid.Must(uuid.NewV4()).String(), `{"title":42}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateTaskPolicyError(t *testing.T) {
	session := newSession(models.RoleUser)
	mockService, router := setupTaskHandler(session)
	id := uuid.Must(uuid.NewV4())
	mockService.On("Update", mock.Anything, session.Actor(), id, mock.Anything).
		Return(nil, apperrors.Validation("only status may be updated by a non-admin"))

	w := performRequest(router, http.MethodPatch, "/tasks/"+id.String(), `{"status":"COMPLETED","title":"x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "only status may be updated by a non-admin", errorBody(t, w).Message)
}

func TestDeleteTask(t *testing.T) {
	session := newSession(models.RoleAdmin)
	mockService, router := setupTaskHandler(session)
	id := uuid.Must(uuid.NewV4())
	mockService.On("Delete", mock.Anything, session.Actor(), id).Return(nil)

	w := performRequest(router, http.MethodDelete, "/tasks/"+id.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestInternalErrorsAreHidden(t *testing.T) {
	session := newSession(models.RoleAdmin)
	mockService, router := setupTaskHandler(session)
	mockService.On("ListAll", mock.Anything, session.Actor()).Return(nil, assert.AnError)

	w := performRequest(router, http.MethodGet, "/admin/tasks", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", errorBody(t, w).Message)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestHandlersRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewTaskHandler(new(MockTaskService))
	router := gin.New()
	router.GET("/tasks", handler.ListTasks)

	w := performRequest(router, http.MethodGet, "/tasks", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_credential", errorBody(t, w).Reason)
}
