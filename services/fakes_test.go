package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/CrowderSoup/project-tracker/database"
)

type published struct {
	room    string
	event   string
	payload any
}

// recordingPublisher captures events instead of fanning them out.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{event: event, payload: payload})
}

func (p *recordingPublisher) PublishToRoom(room, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{room: room, event: event, payload: payload})
}

func (p *recordingPublisher) count(room, event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.room == room && e.event == event {
			n++
		}
	}
	return n
}

type statusChange struct {
	taskID   int64
	from, to string
}

// recordingNotifier stands in for the Dispatcher.
type recordingNotifier struct {
	mu       sync.Mutex
	assigned []int64
	changes  []statusChange
}

func (n *recordingNotifier) TaskAssigned(task database.Task, owner Recipient) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, task.ID)
	return true
}

func (n *recordingNotifier) TaskStatusChanged(task database.Task, owner Recipient, oldStatus, newStatus string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, statusChange{taskID: task.ID, from: oldStatus, to: newStatus})
	return true
}

type reminder struct {
	taskID int64
	days   int
}

// fakeNotifier implements Notifier; failFor makes reminders for a task id fail.
type fakeNotifier struct {
	mu        sync.Mutex
	assigned  int
	changed   int
	reminders []reminder
	failFor   map[int64]bool
}

func (n *fakeNotifier) TaskAssigned(ctx context.Context, task *database.Task, owner Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned++
	return nil
}

func (n *fakeNotifier) TaskStatusChanged(ctx context.Context, task *database.Task, owner Recipient, oldStatus, newStatus string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed++
	return nil
}

func (n *fakeNotifier) DeadlineReminder(ctx context.Context, task *database.Task, owner Recipient, daysLeft int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[task.ID] {
		return errors.New("mail relay unavailable")
	}
	n.reminders = append(n.reminders, reminder{taskID: task.ID, days: daysLeft})
	return nil
}

func mustCreateUser(t *testing.T, store database.Store, name, email, role string) int64 {
	t.Helper()
	id, err := store.CreateUser(context.Background(), &database.User{Name: name, Email: email, PasswordHash: "x", Role: role})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func assertErrorType[T error](t *testing.T, err error) {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("Expected %T, got %v", target, err)
	}
}
