package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps users, projects and tasks in maps guarded by a single
// mutex. Ids come from per-table counters and are never reused.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[int64]User
	projects map[int64]Project
	tasks    map[int64]Task

	nextUserID    int64
	nextProjectID int64
	nextTaskID    int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]User),
		projects: make(map[int64]Project),
		tasks:    make(map[int64]Task),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return 0, ErrDuplicateEmail
		}
	}

	s.nextUserID++
	row := *u
	row.ID = s.nextUserID
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt
	if row.Role == "" {
		row.Role = RoleUser
	}
	s.users[row.ID] = row
	return row.ID, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	if patch.Email.Set && !patch.Email.Null {
		for otherID, other := range s.users {
			if otherID != id && other.Email == patch.Email.Value {
				return 0, ErrDuplicateEmail
			}
		}
	}

	applyString(&u.Name, patch.Name)
	applyString(&u.Email, patch.Email)
	applyString(&u.Role, patch.Role)
	applyPtr(&u.AvatarURL, patch.AvatarURL)
	applyString(&u.PasswordHash, patch.PasswordHash)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return 1, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	for taskID, t := range s.tasks {
		if t.OwnerID == id {
			delete(s.tasks, taskID)
		}
	}
	for projectID, p := range s.projects {
		if p.OwnerID == id {
			s.deleteProjectLocked(projectID)
		}
	}
	delete(s.users, id)
	return 1, nil
}

func (s *MemoryStore) CreateProject(ctx context.Context, p *Project) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProjectID++
	row := Project{
		ID:          s.nextProjectID,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		OwnerID:     p.OwnerID,
		Status:      p.Status,
		Color:       p.Color,
		CreatedAt:   s.now(),
	}
	row.UpdatedAt = row.CreatedAt
	s.projects[row.ID] = row
	return row.ID, nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	joined := s.joinProjectLocked(p)
	return &joined, nil
}

func (s *MemoryStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := []Project{}
	for _, p := range s.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		projects = append(projects, s.joinProjectLocked(p))
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID > projects[j].ID })
	return projects, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return 0, nil
	}
	applyString(&p.Name, patch.Name)
	applyPtr(&p.Description, patch.Description)
	applyString(&p.StartDate, patch.StartDate)
	applyString(&p.EndDate, patch.EndDate)
	if patch.OwnerID.Set {
		p.OwnerID = patch.OwnerID.Value
	}
	applyString(&p.Status, patch.Status)
	applyPtr(&p.Color, patch.Color)
	p.UpdatedAt = s.now()
	s.projects[id] = p
	return 1, nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return 0, nil
	}
	s.deleteProjectLocked(id)
	return 1, nil
}

func (s *MemoryStore) deleteProjectLocked(id int64) {
	for taskID, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, taskID)
		}
	}
	delete(s.projects, id)
}

func (s *MemoryStore) CreateTask(ctx context.Context, t *Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[t.ProjectID]; !ok {
		return 0, ErrProjectNotFound
	}

	s.nextTaskID++
	row := Task{
		ID:          s.nextTaskID,
		ProjectID:   t.ProjectID,
		Name:        t.Name,
		Description: t.Description,
		StartDate:   t.StartDate,
		Deadline:    t.Deadline,
		OwnerID:     t.OwnerID,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   s.now(),
	}
	row.UpdatedAt = row.CreatedAt
	s.tasks[row.ID] = row
	return row.ID, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	joined := s.joinTaskLocked(t)
	return &joined, nil
}

func (s *MemoryStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterTasksLocked(filter), nil
}

func (s *MemoryStore) TasksDueOn(ctx context.Context, date string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []Task{}
	for _, t := range s.tasks {
		if t.Deadline != date || t.Status == StatusCompleted {
			continue
		}
		joined := s.joinTaskLocked(t)
		if joined.OwnerEmail == nil || *joined.OwnerEmail == "" {
			continue
		}
		tasks = append(tasks, joined)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, nil
	}
	applyString(&t.Name, patch.Name)
	applyPtr(&t.Description, patch.Description)
	applyPtr(&t.StartDate, patch.StartDate)
	applyString(&t.Deadline, patch.Deadline)
	if patch.OwnerID.Set {
		t.OwnerID = patch.OwnerID.Value
	}
	applyString(&t.Status, patch.Status)
	applyString(&t.Priority, patch.Priority)
	t.UpdatedAt = s.now()
	s.tasks[id] = t
	return 1, nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return 0, nil
	}
	delete(s.tasks, id)
	return 1, nil
}

func (s *MemoryStore) joinProjectLocked(p Project) Project {
	if owner, ok := s.users[p.OwnerID]; ok {
		name := owner.Name
		p.OwnerName = &name
	} else {
		p.OwnerName = nil
	}

	total, completed := 0, 0
	for _, t := range s.tasks {
		if t.ProjectID != p.ID {
			continue
		}
		total++
		if t.Status == StatusCompleted {
			completed++
		}
	}
	p.TaskCount = &total
	p.CompletedTaskCount = &completed
	return p
}

func (s *MemoryStore) joinTaskLocked(t Task) Task {
	t.ProjectName, t.ProjectColor = nil, nil
	if p, ok := s.projects[t.ProjectID]; ok {
		name := p.Name
		t.ProjectName = &name
		t.ProjectColor = p.Color
	}
	t.OwnerName, t.OwnerEmail = nil, nil
	if owner, ok := s.users[t.OwnerID]; ok {
		name, email := owner.Name, owner.Email
		t.OwnerName = &name
		t.OwnerEmail = &email
	}
	return t
}

func (s *MemoryStore) filterTasksLocked(filter TaskFilter) []Task {
	tasks := []Task{}
	for _, t := range s.tasks {
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		tasks = append(tasks, s.joinTaskLocked(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Deadline != tasks[j].Deadline {
			return tasks[i].Deadline < tasks[j].Deadline
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

func applyString(dst *string, o Optional[string]) {
	if o.Set {
		*dst = o.Value
	}
}

func applyPtr(dst **string, o Optional[string]) {
	if o.Set {
		*dst = o.Ptr()
	}
}
