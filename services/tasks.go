package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/logging"
)

// TaskInput is the body of a create request.
type TaskInput struct {
	ProjectID   int64   `json:"project_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	Deadline    string  `json:"deadline"`
	OwnerID     int64   `json:"owner_id"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
}

// AsyncNotifier queues notifications without waiting for delivery.
type AsyncNotifier interface {
	TaskAssigned(task database.Task, owner Recipient) bool
	TaskStatusChanged(task database.Task, owner Recipient, oldStatus, newStatus string) bool
}

// TaskService applies validated task mutations. Every event goes to the
// global stream and to the task's project room.
type TaskService struct {
	store  database.Store
	bus    Publisher
	notify AsyncNotifier
}

func NewTaskService(store database.Store, bus Publisher, notify AsyncNotifier) *TaskService {
	return &TaskService{store: store, bus: bus, notify: notify}
}

func (s *TaskService) List(ctx context.Context, filter database.TaskFilter) ([]database.Task, error) {
	return s.store.ListTasks(ctx, filter)
}

func (s *TaskService) Get(ctx context.Context, id int64) (*database.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Task"}
	}
	return t, err
}

func (s *TaskService) Create(ctx context.Context, actor Actor, in TaskInput) (*database.Task, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.ProjectID == 0 || in.Name == "" || in.Deadline == "" || in.OwnerID == 0 {
		return nil, validationErrorf("project_id, name, deadline, and owner_id are required")
	}
	if err := checkDate("deadline", in.Deadline); err != nil {
		return nil, err
	}
	if in.StartDate != nil && *in.StartDate != "" {
		if err := checkDate("start_date", *in.StartDate); err != nil {
			return nil, err
		}
	}
	if in.Status == "" {
		in.Status = database.StatusOpen
	}
	if err := checkEnum("status", in.Status, taskStatuses); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = database.PriorityMedium
	}
	if err := checkEnum("priority", in.Priority, priorities); err != nil {
		return nil, err
	}

	// The foreign key would also reject this, but as a generic failure.
	if _, err := s.store.GetProject(ctx, in.ProjectID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, validationErrorf("Project not found")
		}
		return nil, err
	}

	id, err := s.store.CreateTask(ctx, &database.Task{
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		Deadline:    in.Deadline,
		OwnerID:     in.OwnerID,
		Status:      in.Status,
		Priority:    in.Priority,
	})
	if errors.Is(err, database.ErrProjectNotFound) {
		// The project was deleted after the lookup above.
		return nil, validationErrorf("Project not found")
	}
	if err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if owner, ok := RecipientFor(task); ok {
		s.notify.TaskAssigned(*task, owner)
	}

	logging.Logger.WithFields(logrus.Fields{"task_id": id, "project_id": task.ProjectID, "actor": actor.ID}).Info("Task created")
	s.announce(EventTaskCreated, task.ProjectID, task)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, actor Actor, id int64, patch database.TaskPatch) (*database.Task, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, existing); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, validationErrorf("No fields to update")
	}
	if err := validateTaskPatch(patch); err != nil {
		return nil, err
	}

	oldStatus := existing.Status
	statusChanged := patch.Status.Set && patch.Status.Value != oldStatus

	n, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &NotFoundError{Resource: "Task"}
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		if owner, ok := RecipientFor(task); ok {
			s.notify.TaskStatusChanged(*task, owner, oldStatus, task.Status)
		}
	}

	logging.Logger.WithFields(logrus.Fields{"task_id": id, "project_id": task.ProjectID, "actor": actor.ID}).Info("Task updated")
	s.announce(EventTaskUpdated, task.ProjectID, task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, actor Actor, id int64) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, existing); err != nil {
		return err
	}

	n, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Resource: "Task"}
	}

	logging.Logger.WithFields(logrus.Fields{"task_id": id, "project_id": existing.ProjectID, "actor": actor.ID}).Info("Task deleted")
	s.announce(EventTaskDeleted, existing.ProjectID, map[string]int64{"id": id, "project_id": existing.ProjectID})
	return nil
}

// authorize allows admins, the task owner and the owner of the parent project.
func (s *TaskService) authorize(ctx context.Context, actor Actor, task *database.Task) error {
	if actor.mayModify(task.OwnerID) {
		return nil
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if project != nil && actor.mayModify(project.OwnerID) {
		return nil
	}
	return &AuthorizationError{Message: "Only the task owner, the project owner or an admin can modify this task"}
}

func (s *TaskService) announce(event string, projectID int64, payload any) {
	s.bus.Publish(event, payload)
	s.bus.PublishToRoom(ProjectRoom(projectID), event, payload)
}

func validateTaskPatch(p database.TaskPatch) error {
	if err := checkRequired("name", p.Name); err != nil {
		return err
	}
	if err := checkRequired("deadline", p.Deadline); err != nil {
		return err
	}
	if err := checkOptionalDate("deadline", p.Deadline); err != nil {
		return err
	}
	if err := checkOptionalDate("start_date", p.StartDate); err != nil {
		return err
	}
	if p.OwnerID.Set && (p.OwnerID.Null || p.OwnerID.Value == 0) {
		return validationErrorf("owner_id cannot be empty")
	}
	if p.Status.Set {
		if p.Status.Null {
			return validationErrorf("status cannot be empty")
		}
		if err := checkEnum("status", p.Status.Value, taskStatuses); err != nil {
			return err
		}
	}
	if p.Priority.Set {
		if p.Priority.Null {
			return validationErrorf("priority cannot be empty")
		}
		if err := checkEnum("priority", p.Priority.Value, priorities); err != nil {
			return err
		}
	}
	return nil
}
