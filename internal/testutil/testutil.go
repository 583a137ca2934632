// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"taskmaker/backend/internal/database"
	"taskmaker/backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database. The pool is pinned to
// one connection because every sqlite :memory: connection is a separate
// database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:       database.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, database.Migrate(pool.DB))
	return pool.DB
}

func CreateUser(t testing.TB, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: role}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)
	return user
}

func CreateTask(t testing.TB, db *gorm.DB, title string, creator *models.User, assignee *models.User) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, CreatedByID: creator.ID}
	if assignee != nil {
		id := assignee.ID
		task.AssignedUserID = &id
	}
	require.NoError(t, db.Omit("CreatedBy", "AssignedUser").Create(task).Error)
	return task
}

func CreateRequest(t testing.TB, db *gorm.DB, task *models.Task, requester *models.User) *models.TaskRequest {
	t.Helper()
	req := &models.TaskRequest{TaskID: task.ID, RequesterID: requester.ID}
	require.NoError(t, db.Omit("Task", "Requester").Create(req).Error)
	return req
}
