package services

import (
	"log"
	"time"

	"tasktracker/backend/internal/models"

	"gorm.io/gorm"
)

// RecurrenceService materializes child instances of recurring tasks.
//
// Generation walks the due-date sequence one period at a time, starting one
// period after the parent's own due date, and stops once the candidate passes
// the end bound (the explicit recurring end date, or due date plus the
// configured horizon when none is set). Monthly steps keep the parent's
// day-of-month and clamp to the last day of shorter months, so a Jan 31
// parent yields Feb 28 (or 29) and then Mar 31.
type RecurrenceService interface {
	GenerateInstances(db *gorm.DB, parent models.Task) ([]models.Task, error)
	ProcessRecurringTasks(db *gorm.DB) (int, error)
}

type RecurrenceServiceImpl struct {
	taskService TaskService
	horizon     time.Duration
}

func NewRecurrenceService(taskService TaskService, horizonDays int) *RecurrenceServiceImpl {
	return &RecurrenceServiceImpl{
		taskService: taskService,
		horizon:     time.Duration(horizonDays) * 24 * time.Hour,
	}
}

// GenerateInstances creates one child task per future occurrence and returns
// them in due-date order. It is a no-op (not an error) for tasks that are not
// recurring, have no pattern, have no due date, or whose end date precedes
// the due date. It does not check for previously generated children; callers
// invoke it once per parent lifecycle transition.
func (s *RecurrenceServiceImpl) GenerateInstances(db *gorm.DB, parent models.Task) ([]models.Task, error) {
	if !parent.IsRecurring || parent.RecurringPattern == models.PatternNone {
		return nil, nil
	}
	if parent.DueDate == nil {
		return nil, nil
	}

	start := *parent.DueDate
	end := start.Add(s.horizon)
	if parent.RecurringEndDate != nil {
		end = *parent.RecurringEndDate
	}
	if end.Before(start) {
		return nil, nil
	}

	var children []models.Task
	for step := 1; ; step++ {
		due := nextOccurrence(start, parent.RecurringPattern, step)
		if due.After(end) {
			break
		}

		child, err := s.taskService.CreateTask(db, CreateTaskInput{
			Title:        parent.Title,
			Description:  parent.Description,
			Status:       models.StatusNotStarted,
			Priority:     parent.Priority,
			DueDate:      &due,
			CreatedBy:    parent.CreatedBy,
			AssignedTo:   parent.AssignedTo,
			ParentTaskID: &parent.ID,
		})
		if err != nil {
			return children, err
		}
		children = append(children, child)
	}

	return children, nil
}

// ProcessRecurringTasks is the admin-triggered batch pass over every
// recurring parent. Parents that already have children are skipped so that
// repeated invocations do not duplicate instances. Returns the number of
// children created.
func (s *RecurrenceServiceImpl) ProcessRecurringTasks(db *gorm.DB) (int, error) {
	parents, err := s.taskService.ListRecurring(db)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, parent := range parents {
		existing, err := s.taskService.ListChildren(db, parent.ID)
		if err != nil {
			return created, err
		}
		if len(existing) > 0 {
			continue
		}

		children, err := s.GenerateInstances(db, parent)
		if err != nil {
			log.Printf("recurrence: generation failed for task %s: %v", parent.ID, err)
			continue
		}
		created += len(children)
	}

	return created, nil
}

// nextOccurrence computes occurrence number step (1-based) after start.
func nextOccurrence(start time.Time, pattern models.RecurringPattern, step int) time.Time {
	switch pattern {
	case models.PatternDaily:
		return start.AddDate(0, 0, step)
	case models.PatternWeekly:
		return start.AddDate(0, 0, 7*step)
	case models.PatternMonthly:
		return addMonthsClamped(start, step)
	}
	return start
}

// addMonthsClamped advances by whole calendar months, clamping the day to the
// last day of the target month instead of letting it roll over (time.AddDate
// would turn Jan 31 + 1 month into Mar 2 or 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
