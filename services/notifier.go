package services

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/logging"
)

// Recipient is the contact a notification goes to.
type Recipient struct {
	Name  string
	Email string
}

// RecipientFor returns the task owner's contact, or false when the owner
// has no resolvable address.
func RecipientFor(task *database.Task) (Recipient, bool) {
	if task.OwnerEmail == nil || *task.OwnerEmail == "" {
		return Recipient{}, false
	}
	r := Recipient{Email: *task.OwnerEmail}
	if task.OwnerName != nil {
		r.Name = *task.OwnerName
	}
	return r, true
}

// Notifier sends task notifications. Callers treat every error as
// best-effort and only log it.
type Notifier interface {
	TaskAssigned(ctx context.Context, task *database.Task, owner Recipient) error
	TaskStatusChanged(ctx context.Context, task *database.Task, owner Recipient, oldStatus, newStatus string) error
	DeadlineReminder(ctx context.Context, task *database.Task, owner Recipient, daysLeft int) error
}

// Email is a rendered plain-text message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a rendered email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// EmailNotifier renders notifications as plain-text emails.
type EmailNotifier struct {
	mailer Mailer
}

func NewEmailNotifier(mailer Mailer) *EmailNotifier {
	return &EmailNotifier{mailer: mailer}
}

func (n *EmailNotifier) TaskAssigned(ctx context.Context, task *database.Task, owner Recipient) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYou have been assigned a new task.\n\n", greetingName(owner))
	writeTaskSummary(&b, task)
	b.WriteString("\nSign in to view the task.\n")

	return n.mailer.Send(ctx, Email{
		To:      owner.Email,
		Subject: "New task assigned: " + task.Name,
		Body:    b.String(),
	})
}

func (n *EmailNotifier) TaskStatusChanged(ctx context.Context, task *database.Task, owner Recipient, oldStatus, newStatus string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThe status of a task changed: %s -> %s\n\n", greetingName(owner), statusLabel(oldStatus), statusLabel(newStatus))
	writeTaskSummary(&b, task)

	return n.mailer.Send(ctx, Email{
		To:      owner.Email,
		Subject: "Task status updated: " + task.Name,
		Body:    b.String(),
	})
}

func (n *EmailNotifier) DeadlineReminder(ctx context.Context, task *database.Task, owner Recipient, daysLeft int) error {
	subject := fmt.Sprintf("Deadline in %d days: %s", daysLeft, task.Name)
	if daysLeft == 1 {
		subject = "Deadline tomorrow: " + task.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThis task is due in %d day(s).\n\n", greetingName(owner), daysLeft)
	writeTaskSummary(&b, task)
	b.WriteString("\nDon't forget to finish it in time!\n")

	return n.mailer.Send(ctx, Email{To: owner.Email, Subject: subject, Body: b.String()})
}

func writeTaskSummary(b *strings.Builder, task *database.Task) {
	fmt.Fprintf(b, "Task:     %s\n", task.Name)
	fmt.Fprintf(b, "Project:  %s\n", deref(task.ProjectName, "N/A"))
	fmt.Fprintf(b, "Deadline: %s\n", task.Deadline)
	fmt.Fprintf(b, "Priority: %s\n", task.Priority)
	fmt.Fprintf(b, "Status:   %s\n", statusLabel(task.Status))
	if task.Description != nil && *task.Description != "" {
		fmt.Fprintf(b, "\n%s\n", *task.Description)
	}
}

func greetingName(r Recipient) string {
	if r.Name == "" {
		return "there"
	}
	return r.Name
}

func statusLabel(status string) string {
	switch status {
	case database.StatusOpen:
		return "Open"
	case database.StatusInProgress:
		return "In progress"
	case database.StatusCompleted:
		return "Completed"
	default:
		return status
	}
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// LogMailer records emails in the log instead of sending them. It is used
// when email delivery is disabled.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, email Email) error {
	logging.Logger.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("Email disabled, not sending")
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an SMTP relay behind a circuit breaker. After
// four consecutive failures sends fail immediately for 30s.
type SMTPMailer struct {
	config  SMTPConfig
	breaker *gobreaker.CircuitBreaker
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "SMTP",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		}),
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if m.config.Host == "" || m.config.Port == "" {
		return errors.New("SMTP not fully configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.config.From
	if from == "" {
		from = m.config.Username
	}

	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		from, email.To, email.Subject, email.Body)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}
	addr := m.config.Host + ":" + m.config.Port

	_, err := m.breaker.Execute(func() (any, error) {
		return nil, m.send(addr, auth, from, []string{email.To}, []byte(message))
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Dispatcher runs notification jobs on a small worker pool. Jobs beyond the
// queue capacity are dropped.
type Dispatcher struct {
	notifier Notifier
	jobs     chan job
	workers  int
	timeout  time.Duration

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

type job struct {
	name string
	run  func(ctx context.Context, n Notifier) error
}

func NewDispatcher(notifier Notifier, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		notifier: notifier,
		jobs:     make(chan job, queueSize),
		workers:  workers,
		timeout:  30 * time.Second,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	logging.Logger.WithField("workers", d.workers).Info("Notification dispatcher started")
}

// Stop waits for queued jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	logging.Logger.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.execute(j)
	}
}

func (d *Dispatcher) execute(j job) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger.WithField("job", j.name).Errorf("Notification job panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := j.run(ctx, d.notifier); err != nil {
		logging.Logger.WithError(err).WithField("job", j.name).Error("Notification failed")
	}
}

func (d *Dispatcher) enqueue(j job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		logging.Logger.WithField("job", j.name).Warn("Notification dispatcher not running, dropping job")
		return false
	}
	select {
	case d.jobs <- j:
		return true
	default:
		logging.Logger.WithField("job", j.name).Warn("Notification queue full, dropping job")
		return false
	}
}

// TaskAssigned queues an assignment notification.
func (d *Dispatcher) TaskAssigned(task database.Task, owner Recipient) bool {
	return d.enqueue(job{
		name: fmt.Sprintf("task_assigned:%d", task.ID),
		run: func(ctx context.Context, n Notifier) error {
			return n.TaskAssigned(ctx, &task, owner)
		},
	})
}

// TaskStatusChanged queues a status-change notification.
func (d *Dispatcher) TaskStatusChanged(task database.Task, owner Recipient, oldStatus, newStatus string) bool {
	return d.enqueue(job{
		name: fmt.Sprintf("task_status:%d", task.ID),
		run: func(ctx context.Context, n Notifier) error {
			return n.TaskStatusChanged(ctx, &task, owner, oldStatus, newStatus)
		},
	})
}
