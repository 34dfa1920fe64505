package services_test

import (
	"testing"
	"time"

	"tasktracker/backend/internal/models"
	"tasktracker/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingNotifier captures every fan-out call so tests can assert on
// exactly who got notified about what.
type notifyCall struct {
	event  models.NotificationType
	taskID uuid.UUID
	userID uuid.UUID
	actor  string
}

type recordingNotifier struct {
	calls     []notifyCall
	reminders []uuid.UUID
}

func (r *recordingNotifier) NotifyAssigned(db *gorm.DB, task models.Task, assigneeID uuid.UUID, assignerName string) {
	r.calls = append(r.calls, notifyCall{models.NotificationAssigned, task.ID, assigneeID, assignerName})
}

func (r *recordingNotifier) NotifyUpdated(db *gorm.DB, task models.Task, userID uuid.UUID, updaterName string) {
	r.calls = append(r.calls, notifyCall{models.NotificationUpdated, task.ID, userID, updaterName})
}

func (r *recordingNotifier) NotifyCompleted(db *gorm.DB, task models.Task, userID uuid.UUID, completerName string) {
	r.calls = append(r.calls, notifyCall{models.NotificationCompleted, task.ID, userID, completerName})
}

func (r *recordingNotifier) ScheduleDueReminder(db *gorm.DB, task models.Task) {
	r.reminders = append(r.reminders, task.ID)
}

func (r *recordingNotifier) callsTo(userID uuid.UUID) []notifyCall {
	var out []notifyCall
	for _, c := range r.calls {
		if c.userID == userID {
			out = append(out, c)
		}
	}
	return out
}

type managerFixture struct {
	manager  *services.TaskManagerImpl
	tasks    *services.TaskServiceImpl
	audit    *services.AuditServiceImpl
	notifier *recordingNotifier
}

func newManagerFixture(t *testing.T) managerFixture {
	t.Helper()
	users := services.NewUserService()
	tasks := services.NewTaskService(users)
	recurrence := services.NewRecurrenceService(tasks, 90)
	audit := services.NewAuditService()
	notifier := &recordingNotifier{}
	manager := services.NewTaskManager(tasks, recurrence, audit, notifier, users)
	return managerFixture{manager: manager, tasks: tasks, audit: audit, notifier: notifier}
}

func TestManagerCreateTask_NotifiesAssigneeNotActor(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	assignee := createTestUser(t, db, "bob")
	fx := newManagerFixture(t)

	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:      "Review PR",
		AssignedTo: &assignee.ID,
	}, creator.ID)
	require.NoError(t, err)

	assert.Equal(t, creator.ID, task.CreatedBy, "creator is always the acting user")

	calls := fx.notifier.callsTo(assignee.ID)
	require.Len(t, calls, 1)
	assert.Equal(t, models.NotificationAssigned, calls[0].event)
	assert.Equal(t, task.ID, calls[0].taskID)
	assert.Equal(t, creator.DisplayName(), calls[0].actor)

	logs, err := fx.audit.GetLogs(db, services.AuditFilter{EntityID: &task.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionCreated, logs[0].Action)
}

func TestManagerCreateTask_SelfAssignmentIsSilent(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	fx := newManagerFixture(t)

	_, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:      "My own task",
		AssignedTo: &creator.ID,
	}, creator.ID)
	require.NoError(t, err)

	assert.Empty(t, fx.notifier.calls, "assigning a task to yourself must not notify")
}

func TestManagerCreateTask_RecurringGeneratesInstances(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	fx := newManagerFixture(t)

	due := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC)
	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:            "Daily checkin",
		DueDate:          &due,
		IsRecurring:      true,
		RecurringPattern: models.PatternDaily,
		RecurringEndDate: &end,
	}, creator.ID)
	require.NoError(t, err)

	children, err := fx.tasks.ListChildren(db, task.ID)
	require.NoError(t, err)
	assert.Len(t, children, 3)
}

func TestManagerUpdateTask_ReassignmentNotifiesOnlyNewAssignee(t *testing.T) {
	db := setupTestDB(t)
	actor := createTestUser(t, db, "alice")
	oldAssignee := createTestUser(t, db, "bob")
	newAssignee := createTestUser(t, db, "carol")
	fx := newManagerFixture(t)

	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:      "Handover",
		AssignedTo: &oldAssignee.ID,
	}, actor.ID)
	require.NoError(t, err)
	fx.notifier.calls = nil

	_, err = fx.manager.UpdateTask(db, task.ID, services.UpdateTaskPatch{
		AssignedTo: &newAssignee.ID,
	}, actor.ID)
	require.NoError(t, err)

	require.Len(t, fx.notifier.calls, 1, "reassignment fans out to exactly one user")
	assert.Equal(t, newAssignee.ID, fx.notifier.calls[0].userID)
	assert.Equal(t, models.NotificationAssigned, fx.notifier.calls[0].event)
	assert.Empty(t, fx.notifier.callsTo(oldAssignee.ID), "the outgoing assignee hears nothing")

	logs, err := fx.audit.GetLogs(db, services.AuditFilter{EntityID: &task.ID})
	require.NoError(t, err)

	var assigned *models.AuditLog
	for i := range logs {
		if logs[i].Action == models.ActionAssigned {
			assigned = &logs[i]
		}
	}
	require.NotNil(t, assigned)

	var details models.AssignedDetails
	require.NoError(t, assigned.UnmarshalDetails(&details))
	assert.Equal(t, oldAssignee.ID, *details.OldAssignee)
	assert.Equal(t, newAssignee.ID, *details.NewAssignee)
}

func TestManagerUpdateTask_PlainEditNotifiesAssignee(t *testing.T) {
	db := setupTestDB(t)
	actor := createTestUser(t, db, "alice")
	assignee := createTestUser(t, db, "bob")
	fx := newManagerFixture(t)

	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:      "Draft",
		AssignedTo: &assignee.ID,
	}, actor.ID)
	require.NoError(t, err)
	fx.notifier.calls = nil

	newTitle := "Draft v2"
	_, err = fx.manager.UpdateTask(db, task.ID, services.UpdateTaskPatch{Title: &newTitle}, actor.ID)
	require.NoError(t, err)

	require.Len(t, fx.notifier.calls, 1)
	assert.Equal(t, models.NotificationUpdated, fx.notifier.calls[0].event)
	assert.Equal(t, assignee.ID, fx.notifier.calls[0].userID)
}

func TestManagerUpdateTask_CompletionByAssignee(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	assignee := createTestUser(t, db, "bob")
	fx := newManagerFixture(t)

	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:      "Ship it",
		AssignedTo: &assignee.ID,
	}, creator.ID)
	require.NoError(t, err)
	fx.notifier.calls = nil

	completed := models.StatusCompleted
	_, err = fx.manager.UpdateTask(db, task.ID, services.UpdateTaskPatch{Status: &completed}, assignee.ID)
	require.NoError(t, err)

	creatorCalls := fx.notifier.callsTo(creator.ID)
	require.Len(t, creatorCalls, 1)
	assert.Equal(t, models.NotificationCompleted, creatorCalls[0].event)
	assert.Equal(t, assignee.DisplayName(), creatorCalls[0].actor)

	logs, err := fx.audit.GetLogs(db, services.AuditFilter{EntityID: &task.ID})
	require.NoError(t, err)

	var statusChange *models.AuditLog
	sawCompleted := false
	for i := range logs {
		switch logs[i].Action {
		case models.ActionStatusChanged:
			statusChange = &logs[i]
		case models.ActionCompleted:
			sawCompleted = true
		}
	}
	require.NotNil(t, statusChange)
	assert.True(t, sawCompleted)

	var details models.StatusChangedDetails
	require.NoError(t, statusChange.UnmarshalDetails(&details))
	assert.Equal(t, models.StatusNotStarted, details.OldStatus)
	assert.Equal(t, models.StatusCompleted, details.NewStatus)
}

func TestManagerUpdateTask_BecomesRecurring(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	fx := newManagerFixture(t)

	due := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{
		Title:   "Standup",
		DueDate: &due,
	}, creator.ID)
	require.NoError(t, err)

	recurring := true
	weekly := models.PatternWeekly
	_, err = fx.manager.UpdateTask(db, task.ID, services.UpdateTaskPatch{
		IsRecurring:      &recurring,
		RecurringPattern: &weekly,
		RecurringEndDate: &end,
	}, creator.ID)
	require.NoError(t, err)

	children, err := fx.tasks.ListChildren(db, task.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2, "flipping a task to recurring generates instances")
}

func TestManagerUpdateTask_NoOpWritesNoAuditEntry(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	fx := newManagerFixture(t)

	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{Title: "Unchanged"}, creator.ID)
	require.NoError(t, err)

	_, err = fx.manager.UpdateTask(db, task.ID, services.UpdateTaskPatch{}, creator.ID)
	require.NoError(t, err)

	sameTitle := task.Title
	_, err = fx.manager.UpdateTask(db, task.ID, services.UpdateTaskPatch{Title: &sameTitle}, creator.ID)
	require.NoError(t, err)

	logs, err := fx.audit.GetLogs(db, services.AuditFilter{EntityID: &task.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1, "only the creation is audited")
	assert.Equal(t, models.ActionCreated, logs[0].Action)
}

func TestManagerDeleteTask(t *testing.T) {
	db := setupTestDB(t)
	creator := createTestUser(t, db, "alice")
	fx := newManagerFixture(t)

	task, err := fx.manager.CreateTask(db, services.CreateTaskInput{Title: "Ephemeral"}, creator.ID)
	require.NoError(t, err)

	existed, err := fx.manager.DeleteTask(db, task.ID, creator.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	// The audit row outlives the task and keeps its title.
	logs, err := fx.audit.GetLogs(db, services.AuditFilter{EntityID: &task.ID})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.ActionDeleted, logs[0].Action, "entries come back newest first")

	var details models.DeletedDetails
	require.NoError(t, logs[0].UnmarshalDetails(&details))
	assert.Equal(t, "Ephemeral", details.Title)

	existed, err = fx.manager.DeleteTask(db, task.ID, creator.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	// The repeat attempt must not add a second delete entry.
	logs, err = fx.audit.GetLogs(db, services.AuditFilter{EntityID: &task.ID})
	require.NoError(t, err)
	deletes := 0
	for _, l := range logs {
		if l.Action == models.ActionDeleted {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes)
}
