package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when a user insert or update collides on email.
var ErrDuplicateEmail = errors.New("email already in use")

// ErrProjectNotFound is returned when a task insert references a missing project.
var ErrProjectNotFound = errors.New("project does not exist")

// Store is the persistence boundary for users, projects and tasks.
//
// Update and Delete return the number of affected rows so callers can tell
// a missing id from a successful write. Deleting a project must remove its
// tasks in the same operation, deleting a user must remove the projects
// and tasks it owns, and a task can only be created inside an existing project.
type Store interface {
	CreateUser(ctx context.Context, u *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (int64, error)
	DeleteUser(ctx context.Context, id int64) (int64, error)

	CreateProject(ctx context.Context, p *Project) (int64, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (int64, error)
	DeleteProject(ctx context.Context, id int64) (int64, error)

	CreateTask(ctx context.Context, t *Task) (int64, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, id int64, patch TaskPatch) (int64, error)
	DeleteTask(ctx context.Context, id int64) (int64, error)

	// TasksDueOn returns the unfinished tasks with the given deadline whose
	// owner has an email address.
	TasksDueOn(ctx context.Context, date string) ([]Task, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
