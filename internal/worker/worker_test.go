package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestQueue(t *testing.T) (*JobQueue, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewJobQueue(client), client
}

func TestEnqueueEmail(t *testing.T) {
	queue, client := setupTestQueue(t)

	if err := queue.EnqueueEmail("bob@example.com", "Task assigned: Deploy", "<p>hi</p>"); err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	size, err := queue.GetQueueSize(QueueNotifications)
	if err != nil {
		t.Fatalf("GetQueueSize failed: %v", err)
	}
	if size != 1 {
		t.Fatalf("Expected 1 queued job, got %d", size)
	}

	data, err := client.LIndex(context.Background(), QueueNotifications, 0).Result()
	if err != nil {
		t.Fatalf("LIndex failed: %v", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		t.Fatalf("Failed to unmarshal job: %v", err)
	}
	if job.Type != JobTypeEmailNotification {
		t.Errorf("Expected type %s, got %s", JobTypeEmailNotification, job.Type)
	}
	if job.Payload["to"] != "bob@example.com" {
		t.Errorf("Unexpected recipient: %v", job.Payload["to"])
	}
	if job.MaxTries != 3 {
		t.Errorf("Expected 3 max tries, got %d", job.MaxTries)
	}
}

func TestEnqueueReminderAt(t *testing.T) {
	queue, client := setupTestQueue(t)

	due := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	processAt := due.Add(-24 * time.Hour)
	if err := queue.EnqueueReminderAt("bob@example.com", "Ship it", due, processAt); err != nil {
		t.Fatalf("EnqueueReminderAt failed: %v", err)
	}

	data, err := client.LIndex(context.Background(), QueueReminders, 0).Result()
	if err != nil {
		t.Fatalf("LIndex failed: %v", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		t.Fatalf("Failed to unmarshal job: %v", err)
	}
	if job.Type != JobTypeTaskReminder {
		t.Errorf("Expected type %s, got %s", JobTypeTaskReminder, job.Type)
	}
	if !job.ProcessAt.Equal(processAt) {
		t.Errorf("Expected process_at %v, got %v", processAt, job.ProcessAt)
	}
	if job.Payload["due_date"] != due.Format(time.RFC3339) {
		t.Errorf("Unexpected due date payload: %v", job.Payload["due_date"])
	}
}

func TestWorkerProcessesJob(t *testing.T) {
	queue, client := setupTestQueue(t)

	var mu sync.Mutex
	var handled []*Job

	worker := NewWorker(Config{RedisClient: client})
	worker.RegisterHandler(JobTypeEmailNotification, func(ctx context.Context, job *Job) error {
		mu.Lock()
		handled = append(handled, job)
		mu.Unlock()
		return nil
	})

	if err := queue.EnqueueEmail("bob@example.com", "subject", "body"); err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	worker.Start(1)
	defer worker.Stop()

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(handled)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Worker did not process the job in time")
		case <-time.After(50 * time.Millisecond):
		}
	}

	mu.Lock()
	job := handled[0]
	mu.Unlock()
	if job.Payload["subject"] != "subject" {
		t.Errorf("Unexpected payload: %v", job.Payload)
	}
}

func TestWorkerExecutesMaturedRetriedJob(t *testing.T) {
	_, client := setupTestQueue(t)

	// A job that already failed once, whose backoff has elapsed.
	job := Job{
		ID:        "retried-1",
		Type:      JobTypeEmailNotification,
		Payload:   map[string]interface{}{"to": "bob@example.com"},
		Attempts:  1,
		MaxTries:  3,
		CreatedAt: time.Now().Add(-5 * time.Minute),
		ProcessAt: time.Now().Add(-time.Minute),
	}
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}
	if err := client.RPush(context.Background(), QueueRetry, data).Err(); err != nil {
		t.Fatalf("RPush failed: %v", err)
	}

	handled := make(chan *Job, 1)
	worker := NewWorker(Config{RedisClient: client})
	worker.RegisterHandler(JobTypeEmailNotification, func(ctx context.Context, job *Job) error {
		handled <- job
		return nil
	})

	worker.Start(1)
	defer worker.Stop()

	select {
	case got := <-handled:
		if got.ID != "retried-1" {
			t.Errorf("Unexpected job executed: %s", got.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Retried job was never executed from the retry queue")
	}
}

func TestWorkerBacksOffOnUnmaturedJob(t *testing.T) {
	queue, client := setupTestQueue(t)

	due := time.Now().Add(23 * time.Hour)
	if err := queue.EnqueueReminderAt("bob@example.com", "Far off", due.Add(24*time.Hour), due); err != nil {
		t.Fatalf("EnqueueReminderAt failed: %v", err)
	}

	worker := NewWorker(Config{RedisClient: client, Queues: []string{QueueReminders}})

	// Pending jobs are requeued and the loop pauses instead of spinning.
	start := time.Now()
	if err := worker.processNextJob(); err != nil {
		t.Fatalf("processNextJob failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("Expected a backoff pause, loop returned after %v", elapsed)
	}

	size, err := client.LLen(context.Background(), QueueReminders).Result()
	if err != nil {
		t.Fatalf("LLen failed: %v", err)
	}
	if size != 1 {
		t.Errorf("Expected the pending job back on its queue, found %d", size)
	}
}

func TestWorkerRetriesFailedJob(t *testing.T) {
	queue, client := setupTestQueue(t)

	attempted := make(chan struct{}, 1)
	worker := NewWorker(Config{RedisClient: client, Queues: []string{QueueNotifications}})
	worker.RegisterHandler(JobTypeEmailNotification, func(ctx context.Context, job *Job) error {
		select {
		case attempted <- struct{}{}:
		default:
		}
		return context.DeadlineExceeded
	})

	if err := queue.EnqueueEmail("bob@example.com", "subject", "body"); err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	worker.Start(1)
	defer worker.Stop()

	select {
	case <-attempted:
	case <-time.After(3 * time.Second):
		t.Fatal("Handler was never invoked")
	}

	// The failed job lands on the retry queue with a backoff timestamp.
	deadline := time.After(3 * time.Second)
	for {
		size, err := client.LLen(context.Background(), QueueRetry).Result()
		if err != nil {
			t.Fatalf("LLen failed: %v", err)
		}
		if size == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Job never reached the retry queue")
		case <-time.After(50 * time.Millisecond):
		}
	}

	data, err := client.LIndex(context.Background(), QueueRetry, 0).Result()
	if err != nil {
		t.Fatalf("LIndex failed: %v", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		t.Fatalf("Failed to unmarshal retried job: %v", err)
	}
	if job.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", job.Attempts)
	}
	if !job.ProcessAt.After(time.Now()) {
		t.Error("Retried job should be deferred into the future")
	}
}
