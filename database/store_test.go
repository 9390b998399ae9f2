package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func strPtr(s string) *string { return &s }

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLStore(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newMemStore(t *testing.T) Store {
	return NewMemoryStore()
}

// forEachStore runs fn against both Store implementations.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	stores := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{"sqlite", newSQLiteStore},
		{"memory", newMemStore},
	}
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			fn(t, st.open(t))
		})
	}
}

type fixture struct {
	owner   *User
	project int64
}

func seed(t *testing.T, s Store) fixture {
	t.Helper()
	ctx := context.Background()

	uid, err := s.CreateUser(ctx, &User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: RoleUser})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	owner, err := s.GetUser(ctx, uid)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}

	pid, err := s.CreateProject(ctx, &Project{
		Name:      "Launch",
		StartDate: "2025-01-01",
		EndDate:   "2025-02-01",
		OwnerID:   uid,
		Status:    StatusOpen,
		Color:     strPtr(DefaultProjectColor),
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return fixture{owner: owner, project: pid}
}

func addTask(t *testing.T, s Store, projectID, ownerID int64, deadline, status string) int64 {
	t.Helper()
	id, err := s.CreateTask(context.Background(), &Task{
		ProjectID: projectID,
		Name:      "task " + deadline,
		Deadline:  deadline,
		OwnerID:   ownerID,
		Status:    status,
		Priority:  PriorityMedium,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return id
}

func TestStoreUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		if f.owner.Role != RoleUser {
			t.Errorf("Expected role %q, got %q", RoleUser, f.owner.Role)
		}

		_, err := s.CreateUser(ctx, &User{Name: "Dup", Email: "ada@example.com", PasswordHash: "x", Role: RoleUser})
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("Expected ErrDuplicateEmail, got %v", err)
		}

		byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
		if err != nil || byEmail.ID != f.owner.ID {
			t.Fatalf("GetUserByEmail = %v, %v", byEmail, err)
		}

		if _, err := s.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}

		n, err := s.UpdateUser(ctx, f.owner.ID, UserPatch{Name: Some("Ada L."), AvatarURL: Some("a.png")})
		if err != nil || n != 1 {
			t.Fatalf("UpdateUser = %d, %v", n, err)
		}
		u, _ := s.GetUser(ctx, f.owner.ID)
		if u.Name != "Ada L." || u.AvatarURL == nil || *u.AvatarURL != "a.png" || u.Email != "ada@example.com" {
			t.Errorf("Unexpected user after update: %+v", u)
		}

		n, err = s.UpdateUser(ctx, f.owner.ID, UserPatch{AvatarURL: Null[string]()})
		if err != nil || n != 1 {
			t.Fatalf("UpdateUser = %d, %v", n, err)
		}
		u, _ = s.GetUser(ctx, f.owner.ID)
		if u.AvatarURL != nil {
			t.Errorf("Expected avatar cleared, got %q", *u.AvatarURL)
		}

		otherID, _ := s.CreateUser(ctx, &User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x", Role: RoleUser})
		if _, err := s.UpdateUser(ctx, otherID, UserPatch{Email: Some("ada@example.com")}); !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("Expected ErrDuplicateEmail on update, got %v", err)
		}

		if n, _ := s.UpdateUser(ctx, 999, UserPatch{Name: Some("x")}); n != 0 {
			t.Errorf("Expected 0 rows for missing user, got %d", n)
		}

		users, err := s.ListUsers(ctx)
		if err != nil || len(users) != 2 {
			t.Errorf("ListUsers = %d users, %v", len(users), err)
		}
	})
}

func TestStoreProjectStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		addTask(t, s, f.project, f.owner.ID, "2025-01-10", StatusCompleted)
		addTask(t, s, f.project, f.owner.ID, "2025-01-05", StatusOpen)

		p, err := s.GetProject(ctx, f.project)
		if err != nil {
			t.Fatalf("GetProject: %v", err)
		}
		if *p.TaskCount != 2 || *p.CompletedTaskCount != 1 {
			t.Errorf("Expected 1/2 completed, got %d/%d", *p.CompletedTaskCount, *p.TaskCount)
		}
		if p.OwnerName == nil || *p.OwnerName != "Ada" {
			t.Errorf("Expected owner name Ada, got %v", p.OwnerName)
		}
		tasks, err := s.ListTasks(ctx, TaskFilter{ProjectID: &f.project})
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 2 || tasks[0].Deadline != "2025-01-05" {
			t.Errorf("Expected tasks ordered by deadline, got %+v", tasks)
		}

		empty, _ := s.CreateProject(ctx, &Project{Name: "Empty", StartDate: "2025-01-01", EndDate: "2025-01-02", OwnerID: 424242, Status: StatusOpen})
		projects, err := s.ListProjects(ctx, ProjectFilter{})
		if err != nil || len(projects) != 2 {
			t.Fatalf("ListProjects = %d, %v", len(projects), err)
		}
		if projects[0].ID != empty {
			t.Errorf("Expected newest project first, got %d", projects[0].ID)
		}
		if *projects[0].TaskCount != 0 {
			t.Errorf("Expected 0 tasks, got %d", *projects[0].TaskCount)
		}
		// Unknown owners are tolerated and resolve to no name.
		if projects[0].OwnerName != nil {
			t.Errorf("Expected nil owner name, got %q", *projects[0].OwnerName)
		}

		owner := f.owner.ID
		filtered, _ := s.ListProjects(ctx, ProjectFilter{OwnerID: &owner, Status: StatusOpen})
		if len(filtered) != 1 || filtered[0].ID != f.project {
			t.Errorf("Expected only the seeded project, got %+v", filtered)
		}
	})
}

func TestStorePartialUpdate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		n, err := s.UpdateProject(ctx, f.project, ProjectPatch{Description: Some("first")})
		if err != nil || n != 1 {
			t.Fatalf("UpdateProject = %d, %v", n, err)
		}

		// Only status is present; description stays.
		if _, err := s.UpdateProject(ctx, f.project, ProjectPatch{Status: Some(StatusOnHold)}); err != nil {
			t.Fatalf("UpdateProject: %v", err)
		}
		p, _ := s.GetProject(ctx, f.project)
		if p.Status != StatusOnHold || p.Description == nil || *p.Description != "first" || p.Name != "Launch" {
			t.Errorf("Unexpected project after partial update: %+v", p)
		}

		// An explicit null clears the column.
		if _, err := s.UpdateProject(ctx, f.project, ProjectPatch{Description: Null[string]()}); err != nil {
			t.Fatalf("UpdateProject: %v", err)
		}
		p, _ = s.GetProject(ctx, f.project)
		if p.Description != nil {
			t.Errorf("Expected description cleared, got %q", *p.Description)
		}

		n, err = s.UpdateProject(ctx, 999, ProjectPatch{Name: Some("x")})
		if err != nil || n != 0 {
			t.Errorf("Expected 0 rows for missing project, got %d, %v", n, err)
		}

		taskID := addTask(t, s, f.project, f.owner.ID, "2025-01-10", StatusOpen)
		if _, err := s.UpdateTask(ctx, taskID, TaskPatch{Status: Some(StatusInProgress), StartDate: Some("2025-01-02")}); err != nil {
			t.Fatalf("UpdateTask: %v", err)
		}
		task, _ := s.GetTask(ctx, taskID)
		if task.Status != StatusInProgress || task.StartDate == nil || *task.StartDate != "2025-01-02" || task.Deadline != "2025-01-10" {
			t.Errorf("Unexpected task after update: %+v", task)
		}
		if task.ProjectName == nil || *task.ProjectName != "Launch" {
			t.Errorf("Expected joined project name, got %v", task.ProjectName)
		}
	})
}

func TestStoreDeleteProjectCascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)
		taskID := addTask(t, s, f.project, f.owner.ID, "2025-01-10", StatusOpen)

		n, err := s.DeleteProject(ctx, f.project)
		if err != nil || n != 1 {
			t.Fatalf("DeleteProject = %d, %v", n, err)
		}
		if _, err := s.GetTask(ctx, taskID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected task gone with its project, got %v", err)
		}
		if n, _ := s.DeleteProject(ctx, f.project); n != 0 {
			t.Errorf("Expected second delete to affect 0 rows, got %d", n)
		}
	})
}

func TestStoreCreateTaskRequiresProject(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		_, err := s.CreateTask(ctx, &Task{
			ProjectID: 999,
			Name:      "orphan",
			Deadline:  "2025-01-10",
			OwnerID:   f.owner.ID,
			Status:    StatusOpen,
			Priority:  PriorityMedium,
		})
		if !errors.Is(err, ErrProjectNotFound) {
			t.Fatalf("Expected ErrProjectNotFound, got %v", err)
		}

		pid := int64(999)
		tasks, err := s.ListTasks(ctx, TaskFilter{ProjectID: &pid})
		if err != nil {
			t.Fatal(err)
		}
		if len(tasks) != 0 {
			t.Errorf("Expected no task stored for a missing project, got %d", len(tasks))
		}
	})
}

func TestStoreDeleteUserCascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		otherID, _ := s.CreateUser(ctx, &User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x", Role: RoleUser})
		otherProject, _ := s.CreateProject(ctx, &Project{Name: "Bob's", StartDate: "2025-01-01", EndDate: "2025-01-02", OwnerID: otherID, Status: StatusOpen})

		inOwnProject := addTask(t, s, f.project, otherID, "2025-01-10", StatusOpen)
		inOtherProject := addTask(t, s, otherProject, f.owner.ID, "2025-01-10", StatusOpen)
		survivor := addTask(t, s, otherProject, otherID, "2025-01-11", StatusOpen)

		n, err := s.DeleteUser(ctx, f.owner.ID)
		if err != nil || n != 1 {
			t.Fatalf("DeleteUser = %d, %v", n, err)
		}

		if _, err := s.GetProject(ctx, f.project); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected owned project deleted, got %v", err)
		}
		for _, id := range []int64{inOwnProject, inOtherProject} {
			if _, err := s.GetTask(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected task %d deleted, got %v", id, err)
			}
		}
		if _, err := s.GetTask(ctx, survivor); err != nil {
			t.Errorf("Expected unrelated task to survive, got %v", err)
		}
	})
}

func TestStoreTasksDueOn(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		due := addTask(t, s, f.project, f.owner.ID, "2025-01-10", StatusOpen)
		addTask(t, s, f.project, f.owner.ID, "2025-01-10", StatusCompleted)
		addTask(t, s, f.project, f.owner.ID, "2025-01-11", StatusOpen)
		// Owner does not exist, so there is no address to remind.
		addTask(t, s, f.project, 777, "2025-01-10", StatusOpen)

		tasks, err := s.TasksDueOn(ctx, "2025-01-10")
		if err != nil {
			t.Fatalf("TasksDueOn: %v", err)
		}
		if len(tasks) != 1 || tasks[0].ID != due {
			t.Fatalf("Expected only task %d, got %+v", due, tasks)
		}
		if tasks[0].OwnerEmail == nil || *tasks[0].OwnerEmail != "ada@example.com" {
			t.Errorf("Expected owner email joined, got %v", tasks[0].OwnerEmail)
		}
	})
}

func TestStoreListTasksFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := seed(t, s)

		addTask(t, s, f.project, f.owner.ID, "2025-01-10", StatusOpen)
		addTask(t, s, f.project, f.owner.ID, "2025-01-11", StatusCompleted)

		tests := []struct {
			name   string
			filter TaskFilter
			want   int
		}{
			{"all", TaskFilter{}, 2},
			{"by project", TaskFilter{ProjectID: &f.project}, 2},
			{"by status", TaskFilter{Status: StatusCompleted}, 1},
			{"by priority", TaskFilter{Priority: PriorityHigh}, 0},
			{"conjunction", TaskFilter{ProjectID: &f.project, Status: StatusOpen, Priority: PriorityMedium}, 1},
		}
		for _, tt := range tests {
			tasks, err := s.ListTasks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if len(tasks) != tt.want {
				t.Errorf("%s: expected %d tasks, got %d", tt.name, tt.want, len(tasks))
			}
		}
	})
}
