package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/logging"
)

// DefaultDeadlineSchedule fires every day at 08:00.
const DefaultDeadlineSchedule = "0 8 * * *"

// ReminderThresholds are the days-before-deadline that get a reminder.
var ReminderThresholds = []int{1, 3}

// RunReport summarizes one deadline scan.
type RunReport struct {
	Date     string `json:"date"`
	OneDay   int    `json:"one_day"`
	ThreeDay int    `json:"three_day"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
}

type DeadlineScheduler struct {
	store    database.Store
	notifier Notifier
	loc      *time.Location
	schedule string
	now      func() time.Time

	cron *cron.Cron

	// runMu serializes scans; mu guards the ledger and the cron handle.
	runMu      sync.Mutex
	mu         sync.Mutex
	ledgerDate string
	sent       map[ledgerKey]struct{}
}

type ledgerKey struct {
	taskID    int64
	threshold int
}

func NewDeadlineScheduler(store database.Store, notifier Notifier, schedule string, loc *time.Location) *DeadlineScheduler {
	if schedule == "" {
		schedule = DefaultDeadlineSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DeadlineScheduler{
		store:    store,
		notifier: notifier,
		loc:      loc,
		schedule: schedule,
		now:      time.Now,
		sent:     make(map[ledgerKey]struct{}),
	}
}

// Start registers the daily scan. Missed firings are not caught up.
func (s *DeadlineScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(logging.Logger))),
	)
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			logging.Logger.WithError(err).Error("Deadline scan failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid deadline schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	logging.Logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"timezone": s.loc.String(),
	}).Info("Deadline scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (s *DeadlineScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	logging.Logger.Info("Deadline scheduler stopped")
}

// RunOnce scans for tasks due in each threshold and sends reminders. A
// reminder already sent today for the same task and threshold is skipped.
func (s *DeadlineScheduler) RunOnce(ctx context.Context) (report RunReport, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deadline scan panicked: %v", r)
		}
	}()

	today := s.now().In(s.loc)
	report.Date = today.Format(database.DateLayout)
	s.resetLedger(report.Date)

	for _, days := range ReminderThresholds {
		date := today.AddDate(0, 0, days).Format(database.DateLayout)
		tasks, err := s.store.TasksDueOn(ctx, date)
		if err != nil {
			return report, fmt.Errorf("failed to query tasks due %s: %w", date, err)
		}

		switch days {
		case 1:
			report.OneDay = len(tasks)
		case 3:
			report.ThreeDay = len(tasks)
		}

		for i := range tasks {
			s.remind(ctx, &tasks[i], days, &report)
		}
	}

	logging.Logger.WithFields(logrus.Fields{
		"date":      report.Date,
		"one_day":   report.OneDay,
		"three_day": report.ThreeDay,
		"sent":      report.Sent,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Deadline scan finished")
	return report, nil
}

func (s *DeadlineScheduler) remind(ctx context.Context, task *database.Task, days int, report *RunReport) {
	owner, ok := RecipientFor(task)
	if !ok {
		report.Skipped++
		return
	}

	key := ledgerKey{taskID: task.ID, threshold: days}
	if s.alreadySent(key) {
		report.Skipped++
		return
	}

	if err := s.notifier.DeadlineReminder(ctx, task, owner, days); err != nil {
		report.Failed++
		logging.Logger.WithError(err).WithFields(logrus.Fields{
			"task_id":   task.ID,
			"threshold": days,
		}).Error("Failed to send deadline reminder")
		return
	}

	s.markSent(key)
	report.Sent++
}

func (s *DeadlineScheduler) resetLedger(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledgerDate != date {
		s.ledgerDate = date
		s.sent = make(map[ledgerKey]struct{})
	}
}

func (s *DeadlineScheduler) alreadySent(key ledgerKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[key]
	return ok
}

func (s *DeadlineScheduler) markSent(key ledgerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[key] = struct{}{}
}
