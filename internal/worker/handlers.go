package worker

import (
	"context"
	"fmt"

	"tasktracker/backend/internal/mail"
)

// EmailNotificationHandler delivers a queued notification email.
func EmailNotificationHandler(mailer mail.Mailer) JobHandler {
	return func(ctx context.Context, job *Job) error {
		to, ok := job.Payload["to"].(string)
		if !ok || to == "" {
			return fmt.Errorf("email job %s has no recipient", job.ID)
		}
		subject, _ := job.Payload["subject"].(string)
		body, _ := job.Payload["body"].(string)

		return mailer.Send(to, subject, body)
	}
}

// TaskReminderHandler sends the due-soon reminder for a task.
func TaskReminderHandler(mailer mail.Mailer) JobHandler {
	return func(ctx context.Context, job *Job) error {
		to, ok := job.Payload["to"].(string)
		if !ok || to == "" {
			return fmt.Errorf("reminder job %s has no recipient", job.ID)
		}
		title, _ := job.Payload["title"].(string)
		dueDate, _ := job.Payload["due_date"].(string)

		subject := fmt.Sprintf("Reminder: %s is due soon", title)
		body := fmt.Sprintf("<p>Your task <strong>%s</strong> is due at %s.</p>", title, dueDate)

		return mailer.Send(to, subject, body)
	}
}
