package services

import (
	"context"
	"fmt"
	"time"

	"tasktracker/backend/internal/cache"
	"tasktracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// CachedTaskService wraps a TaskService with a redis read-through cache on
// single-task and paginated reads, invalidating on every mutation. Queries
// used by the recurrence and notification paths (overdue, recurring,
// children, search) go straight to the store so they always see the latest
// committed writes.
type CachedTaskService struct {
	tasks TaskService
	cache *cache.RedisCache
}

func NewCachedTaskService(tasks TaskService, cacheInstance *cache.RedisCache) *CachedTaskService {
	return &CachedTaskService{
		tasks: tasks,
		cache: cacheInstance,
	}
}

func taskKey(id uuid.UUID) string {
	return fmt.Sprintf("task:%s", id.String())
}

func (s *CachedTaskService) invalidate(id uuid.UUID) {
	ctx := context.Background()
	s.cache.Delete(ctx, taskKey(id))
	s.cache.DeletePattern(ctx, "tasks_paginated:*")
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, input CreateTaskInput) (models.Task, error) {
	task, err := s.tasks.CreateTask(db, input)
	if err != nil {
		return models.Task{}, err
	}

	ctx := context.Background()
	s.cache.Set(ctx, taskKey(task.ID), task, 30*time.Minute)
	s.cache.DeletePattern(ctx, "tasks_paginated:*")

	return task, nil
}

func (s *CachedTaskService) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	ctx := context.Background()

	var cached models.Task
	if err := s.cache.Get(ctx, taskKey(id), &cached); err == nil {
		return cached, nil
	}

	task, err := s.tasks.GetTaskByID(db, id)
	if err != nil {
		return task, err
	}

	s.cache.Set(ctx, taskKey(id), task, 30*time.Minute)
	return task, nil
}

func (s *CachedTaskService) UpdateTask(db *gorm.DB, id uuid.UUID, patch UpdateTaskPatch) (models.Task, error) {
	task, err := s.tasks.UpdateTask(db, id, patch)
	if err != nil {
		return models.Task{}, err
	}
	s.invalidate(id)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, id uuid.UUID) (bool, error) {
	existed, err := s.tasks.DeleteTask(db, id)
	if err != nil {
		return false, err
	}
	s.invalidate(id)
	return existed, nil
}

func (s *CachedTaskService) ListByAssignee(db *gorm.DB, userID uuid.UUID) ([]models.Task, error) {
	return s.tasks.ListByAssignee(db, userID)
}

func (s *CachedTaskService) ListByCreator(db *gorm.DB, userID uuid.UUID) ([]models.Task, error) {
	return s.tasks.ListByCreator(db, userID)
}

func (s *CachedTaskService) ListOverdue(db *gorm.DB, userID uuid.UUID, now time.Time) ([]models.Task, error) {
	return s.tasks.ListOverdue(db, userID, now)
}

func (s *CachedTaskService) ListRecurring(db *gorm.DB) ([]models.Task, error) {
	return s.tasks.ListRecurring(db)
}

func (s *CachedTaskService) ListChildren(db *gorm.DB, parentID uuid.UUID) ([]models.Task, error) {
	return s.tasks.ListChildren(db, parentID)
}

func (s *CachedTaskService) Search(db *gorm.DB, query string, filters TaskFilters) ([]models.Task, error) {
	return s.tasks.Search(db, query, filters)
}

func (s *CachedTaskService) GetTasksPaginated(db *gorm.DB, sortBy, order string, page, pageSize int) ([]models.Task, int64, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("tasks_paginated:%s:%s:%d:%d", sortBy, order, page, pageSize)

	var cached struct {
		Tasks []models.Task `json:"tasks"`
		Total int64         `json:"total"`
	}
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached.Tasks, cached.Total, nil
	}

	tasks, total, err := s.tasks.GetTasksPaginated(db, sortBy, order, page, pageSize)
	if err != nil {
		return tasks, total, err
	}

	cached.Tasks = tasks
	cached.Total = total
	s.cache.Set(ctx, cacheKey, cached, 5*time.Minute)

	return tasks, total, nil
}
