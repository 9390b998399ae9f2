package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/logging"
)

// ProjectInput is the body of a create request.
type ProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	OwnerID     int64   `json:"owner_id"`
	Status      string  `json:"status"`
	Color       *string `json:"color"`
}

// ProjectService applies validated project mutations and announces them on
// the broadcast bus after they commit.
type ProjectService struct {
	store database.Store
	bus   Publisher
}

func NewProjectService(store database.Store, bus Publisher) *ProjectService {
	return &ProjectService{store: store, bus: bus}
}

func (s *ProjectService) List(ctx context.Context, filter database.ProjectFilter) ([]database.Project, error) {
	projects, err := s.store.ListProjects(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		withProgress(&projects[i])
	}
	return projects, nil
}

// Get returns the project with its progress and tasks.
func (s *ProjectService) Get(ctx context.Context, id int64) (*database.ProjectDetail, error) {
	p, err := s.project(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, database.TaskFilter{ProjectID: &id})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []database.Task{}
	}
	return &database.ProjectDetail{Project: *p, Tasks: tasks}, nil
}

func (s *ProjectService) project(ctx context.Context, id int64) (*database.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Project"}
	}
	if err != nil {
		return nil, err
	}
	return withProgress(p), nil
}

func (s *ProjectService) Create(ctx context.Context, actor Actor, in ProjectInput) (*database.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.StartDate == "" || in.EndDate == "" || in.OwnerID == 0 {
		return nil, validationErrorf("Name, start_date, end_date, and owner_id are required")
	}
	if err := checkDate("start_date", in.StartDate); err != nil {
		return nil, err
	}
	if err := checkDate("end_date", in.EndDate); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = database.StatusOpen
	}
	if err := checkEnum("status", in.Status, projectStatuses); err != nil {
		return nil, err
	}
	if in.Color == nil || *in.Color == "" {
		color := database.DefaultProjectColor
		in.Color = &color
	}

	id, err := s.store.CreateProject(ctx, &database.Project{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		OwnerID:     in.OwnerID,
		Status:      in.Status,
		Color:       in.Color,
	})
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	// A fresh project has no tasks; its record carries no progress fields.
	project.TaskCount, project.CompletedTaskCount, project.Progress = nil, nil, nil

	logging.Logger.WithFields(logrus.Fields{"project_id": id, "actor": actor.ID}).Info("Project created")
	s.bus.Publish(EventProjectCreated, project)
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, actor Actor, id int64, patch database.ProjectPatch) (*database.Project, error) {
	existing, err := s.project(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayModify(existing.OwnerID) {
		return nil, &AuthorizationError{Message: "Only the project owner or an admin can modify this project"}
	}
	if patch.IsEmpty() {
		return nil, validationErrorf("No fields to update")
	}
	if err := validateProjectPatch(patch); err != nil {
		return nil, err
	}

	n, err := s.store.UpdateProject(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &NotFoundError{Resource: "Project"}
	}

	project, err := s.project(ctx, id)
	if err != nil {
		return nil, err
	}

	logging.Logger.WithFields(logrus.Fields{"project_id": id, "actor": actor.ID}).Info("Project updated")
	s.bus.Publish(EventProjectUpdated, project)
	return project, nil
}

// Delete removes the project; the store removes its tasks with it.
func (s *ProjectService) Delete(ctx context.Context, actor Actor, id int64) error {
	existing, err := s.store.GetProject(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Resource: "Project"}
	}
	if err != nil {
		return err
	}
	if !actor.mayModify(existing.OwnerID) {
		return &AuthorizationError{Message: "Only the project owner or an admin can delete this project"}
	}

	n, err := s.store.DeleteProject(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Resource: "Project"}
	}

	logging.Logger.WithFields(logrus.Fields{"project_id": id, "actor": actor.ID}).Info("Project deleted")
	s.bus.Publish(EventProjectDeleted, map[string]int64{"id": id})
	return nil
}

func validateProjectPatch(p database.ProjectPatch) error {
	if err := checkRequired("name", p.Name); err != nil {
		return err
	}
	if err := checkRequired("start_date", p.StartDate); err != nil {
		return err
	}
	if err := checkRequired("end_date", p.EndDate); err != nil {
		return err
	}
	if err := checkOptionalDate("start_date", p.StartDate); err != nil {
		return err
	}
	if err := checkOptionalDate("end_date", p.EndDate); err != nil {
		return err
	}
	if p.OwnerID.Set && (p.OwnerID.Null || p.OwnerID.Value == 0) {
		return validationErrorf("owner_id cannot be empty")
	}
	if p.Status.Set {
		if p.Status.Null {
			return validationErrorf("status cannot be empty")
		}
		if err := checkEnum("status", p.Status.Value, projectStatuses); err != nil {
			return err
		}
	}
	return nil
}
