package handlers_test

import (
	"context"

	"taskmaker/backend/internal/auth"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"
	"taskmaker/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) Create(ctx context.Context, actor policy.Actor, input services.CreateTaskInput) (*models.Task, error) {
	args := m.Called(ctx, actor, input)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) List(ctx context.Context, actor policy.Actor, filter services.TaskListFilter) ([]models.Task, error) {
	args := m.Called(ctx, actor, filter)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) Browse(ctx context.Context) ([]models.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) ListAll(ctx context.Context, actor policy.Actor) ([]models.Task, error) {
	args := m.Called(ctx, actor)
	tasks, _ := args.Get(0).([]models.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*models.Task, error) {
	args := m.Called(ctx, actor, id)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch services.TaskPatch) (*models.Task, error) {
	args := m.Called(ctx, actor, id, patch)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) RequestTask(ctx context.Context, actor policy.Actor, taskID uuid.UUID) (*models.TaskRequest, error) {
	args := m.Called(ctx, actor, taskID)
	req, _ := args.Get(0).(*models.TaskRequest)
	return req, args.Error(1)
}

func (m *MockRequestService) Decide(ctx context.Context, actor policy.Actor, requestID uuid.UUID, action string) (*models.TaskRequest, error) {
	args := m.Called(ctx, actor, requestID, action)
	req, _ := args.Get(0).(*models.TaskRequest)
	return req, args.Error(1)
}

func (m *MockRequestService) ListPending(ctx context.Context, actor policy.Actor) ([]models.TaskRequest, error) {
	args := m.Called(ctx, actor)
	requests, _ := args.Get(0).([]models.TaskRequest)
	return requests, args.Error(1)
}

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) List(ctx context.Context, actor policy.Actor, taskID uuid.UUID) ([]models.TaskMessage, error) {
	args := m.Called(ctx, actor, taskID)
	messages, _ := args.Get(0).([]models.TaskMessage)
	return messages, args.Error(1)
}

func (m *MockMessageService) Post(ctx context.Context, actor policy.Actor, taskID uuid.UUID, body string) (*models.TaskMessage, error) {
	args := m.Called(ctx, actor, taskID, body)
	msg, _ := args.Get(0).(*models.TaskMessage)
	return msg, args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) EnsureProfile(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	args := m.Called(ctx, claims)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, actor policy.Actor) ([]models.User, error) {
	args := m.Called(ctx, actor)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *MockUserService) ChangeRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) (*models.User, error) {
	args := m.Called(ctx, actor, userID, role)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
