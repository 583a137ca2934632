package repositories

import (
	"context"
	"errors"
	"fmt"

	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConcurrentUpdate reports a transaction aborted by the database
	// because it lost a race with another one.
	ErrConcurrentUpdate = errors.New("concurrent update")
)

const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

// translate maps gorm errors onto the repository sentinels. The pool opens
// gorm with TranslateError so unique and foreign-key violations from either
// driver arrive as gorm sentinels. A foreign-key violation means the parent
// row is gone.
func translate(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.As(err, &pgErr) && (pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure):
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}

// forUpdate adds a row lock. The sqlite dialector drops the clause and
// relies on its single-writer lock instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Store groups the repositories over one *gorm.DB, which is either the pool
// or an open transaction.
type Store struct {
	db       *gorm.DB
	Users    UserRepository
	Tasks    TaskRepository
	Requests RequestRepository
	Messages MessageRepository
	Audit    AuditRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Tasks:    NewTaskRepository(db),
		Requests: NewRequestRepository(db),
		Messages: NewMessageRepository(db),
		Audit:    NewAuditRepository(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a Store bound to a single transaction. Any
// error returned by fn rolls the whole unit back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return translate(err)
	}
	return err
}

// LockRequestWithTask locks a request's task row and then the request row
// itself. Every decision takes the locks in this order, so competing
// deciders queue on the task instead of deadlocking on each other's
// requests. It must run inside Transaction.
func (s *Store) LockRequestWithTask(ctx context.Context, requestID uuid.UUID) (*models.TaskRequest, *models.Task, error) {
	req, err := s.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	task, err := s.Tasks.FindByIDForUpdate(ctx, req.TaskID)
	if err != nil {
		return nil, nil, err
	}
	req, err = s.Requests.FindByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	return req, task, nil
}
