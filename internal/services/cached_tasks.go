package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"taskmaker/backend/internal/cache"
	"taskmaker/backend/internal/models"
	"taskmaker/backend/internal/policy"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

const (
	browseCacheKey     = "tasks:browse"
	browseCachePattern = "tasks:*"
)

// BrowseInvalidator is implemented by anything caching the browse list.
// Services that change assignment or status outside TaskService call it
// after commit.
type BrowseInvalidator interface {
	InvalidateBrowse(ctx context.Context)
}

// CachedTaskService serves Browse from the cache and drops the cached list
// on every task mutation. Cache failures degrade to a database read.
//
// generation is bumped on every invalidation. A Browse only stores the list
// it read when no invalidation happened in between, so a read that raced a
// mutation never repopulates the cache with the old list.
type CachedTaskService struct {
	TaskService
	cache      cache.Cache
	ttl        time.Duration
	log        logrus.FieldLogger
	generation atomic.Uint64
}

var (
	_ TaskService       = (*CachedTaskService)(nil)
	_ BrowseInvalidator = (*CachedTaskService)(nil)
)

func NewCachedTaskService(taskService TaskService, cacheInstance cache.Cache, ttl time.Duration, log logrus.FieldLogger) *CachedTaskService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedTaskService{
		TaskService: taskService,
		cache:       cacheInstance,
		ttl:         ttl,
		log:         log,
	}
}

func (s *CachedTaskService) Browse(ctx context.Context) ([]models.Task, error) {
	var cached []models.Task
	err := s.cache.Get(ctx, browseCacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.WithError(err).Debug("browse cache read failed")
	}

	gen := s.generation.Load()
	tasks, err := s.TaskService.Browse(ctx)
	if err != nil {
		return nil, err
	}
	if s.generation.Load() != gen {
		return tasks, nil
	}

	if err := s.cache.Set(ctx, browseCacheKey, tasks, s.ttl); err != nil {
		s.log.WithError(err).Debug("browse cache write failed")
	}
	if s.generation.Load() != gen {
		// An invalidation landed between the check and the write.
		s.dropBrowse(ctx)
	}
	return tasks, nil
}

func (s *CachedTaskService) Create(ctx context.Context, actor policy.Actor, input CreateTaskInput) (*models.Task, error) {
	task, err := s.TaskService.Create(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	s.InvalidateBrowse(ctx)
	return task, nil
}

func (s *CachedTaskService) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.TaskService.Update(ctx, actor, id, patch)
	if err != nil {
		return nil, err
	}
	s.InvalidateBrowse(ctx)
	return task, nil
}

func (s *CachedTaskService) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := s.TaskService.Delete(ctx, actor, id); err != nil {
		return err
	}
	s.InvalidateBrowse(ctx)
	return nil
}

func (s *CachedTaskService) InvalidateBrowse(ctx context.Context) {
	s.generation.Add(1)
	s.dropBrowse(ctx)
}

func (s *CachedTaskService) dropBrowse(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, browseCachePattern); err != nil {
		s.log.WithError(err).Warn("failed to invalidate browse cache")
	}
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}
