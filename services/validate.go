package services

import (
	"math"
	"strings"
	"time"

	"github.com/CrowderSoup/project-tracker/database"
)

// Actor is the authenticated caller of a mutation.
type Actor struct {
	ID    int64
	Role  string
	Email string
}

func (a Actor) IsAdmin() bool { return a.Role == database.RoleAdmin }

// mayModify reports whether the actor is an admin or one of the owners.
func (a Actor) mayModify(owners ...int64) bool {
	if a.IsAdmin() {
		return true
	}
	for _, id := range owners {
		if id == a.ID {
			return true
		}
	}
	return false
}

var (
	projectStatuses = map[string]bool{
		database.StatusOpen:       true,
		database.StatusInProgress: true,
		database.StatusCompleted:  true,
		database.StatusOnHold:     true,
		database.StatusCancelled:  true,
	}
	taskStatuses = map[string]bool{
		database.StatusOpen:       true,
		database.StatusInProgress: true,
		database.StatusCompleted:  true,
	}
	priorities = map[string]bool{
		database.PriorityLow:    true,
		database.PriorityMedium: true,
		database.PriorityHigh:   true,
	}
	roles = map[string]bool{
		database.RoleAdmin: true,
		database.RoleUser:  true,
	}
)

func validDate(s string) bool {
	_, err := time.Parse(database.DateLayout, s)
	return err == nil
}

func checkDate(field, value string) error {
	if !validDate(value) {
		return validationErrorf("%s must be a date in YYYY-MM-DD format", field)
	}
	return nil
}

func checkEnum(field, value string, allowed map[string]bool) error {
	if !allowed[value] {
		return validationErrorf("invalid %s: %q", field, value)
	}
	return nil
}

// checkRequired rejects an explicit null or blank value for a NOT NULL column.
func checkRequired(field string, o database.Optional[string]) error {
	if !o.Set {
		return nil
	}
	if o.Null || strings.TrimSpace(o.Value) == "" {
		return validationErrorf("%s cannot be empty", field)
	}
	return nil
}

func checkOptionalDate(field string, o database.Optional[string]) error {
	if !o.Set || o.Null {
		return nil
	}
	return checkDate(field, o.Value)
}

// Progress is the rounded share of completed tasks, 0 for an empty project.
func Progress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func withProgress(p *database.Project) *database.Project {
	total, completed := 0, 0
	if p.TaskCount != nil {
		total = *p.TaskCount
	}
	if p.CompletedTaskCount != nil {
		completed = *p.CompletedTaskCount
	}
	progress := Progress(completed, total)
	p.TaskCount = &total
	p.CompletedTaskCount = &completed
	p.Progress = &progress
	return p
}
