package database

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
	StatusCancelled  = "cancelled"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	// DefaultProjectColor is the display color given to projects created without one
	DefaultProjectColor = "#667eea"

	// DateLayout is the storage format of start_date, end_date and deadline
	DateLayout = "2006-01-02"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	OwnerID     int64     `json:"owner_id"`
	OwnerName   *string   `json:"owner_name"`
	Status      string    `json:"status"`
	Color       *string   `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Derived, filled by list and get queries only
	TaskCount          *int `json:"task_count,omitempty"`
	CompletedTaskCount *int `json:"completed_task_count,omitempty"`
	Progress           *int `json:"progress,omitempty"`
}

// ProjectDetail is a project together with its tasks, always present as a
// list.
type ProjectDetail struct {
	Project
	Tasks []Task `json:"tasks"`
}

type Task struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	ProjectName  *string   `json:"project_name"`
	ProjectColor *string   `json:"project_color"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	StartDate    *string   `json:"start_date"`
	Deadline     string    `json:"deadline"`
	OwnerID      int64     `json:"owner_id"`
	OwnerName    *string   `json:"owner_name"`
	OwnerEmail   *string   `json:"-"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserPatch struct {
	Name         Optional[string]
	Email        Optional[string]
	Role         Optional[string]
	AvatarURL    Optional[string]
	PasswordHash Optional[string]
}

func (p UserPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Email.Set && !p.Role.Set && !p.AvatarURL.Set && !p.PasswordHash.Set
}

type ProjectPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	StartDate   Optional[string] `json:"start_date"`
	EndDate     Optional[string] `json:"end_date"`
	OwnerID     Optional[int64]  `json:"owner_id"`
	Status      Optional[string] `json:"status"`
	Color       Optional[string] `json:"color"`
}

func (p ProjectPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set && !p.StartDate.Set && !p.EndDate.Set &&
		!p.OwnerID.Set && !p.Status.Set && !p.Color.Set
}

type TaskPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	StartDate   Optional[string] `json:"start_date"`
	Deadline    Optional[string] `json:"deadline"`
	OwnerID     Optional[int64]  `json:"owner_id"`
	Status      Optional[string] `json:"status"`
	Priority    Optional[string] `json:"priority"`
}

func (p TaskPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set && !p.StartDate.Set && !p.Deadline.Set &&
		!p.OwnerID.Set && !p.Status.Set && !p.Priority.Set
}

// ProjectFilter is an exact-match conjunction; zero values are ignored
type ProjectFilter struct {
	Status  string
	OwnerID *int64
}

// TaskFilter is an exact-match conjunction; zero values are ignored
type TaskFilter struct {
	ProjectID *int64
	OwnerID   *int64
	Status    string
	Priority  string
}
