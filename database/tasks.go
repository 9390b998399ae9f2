package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const taskSelect = `
	SELECT
		t.id, t.project_id, p.name, p.color, t.name, t.description, t.start_date,
		t.deadline, t.owner_id, u.name, u.email, t.status, t.priority,
		t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN projects p ON t.project_id = p.id
	LEFT JOIN users u ON t.owner_id = u.id`

func scanTask(row scanner) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.ProjectName, &t.ProjectColor, &t.Name, &t.Description, &t.StartDate,
		&t.Deadline, &t.OwnerID, &t.OwnerName, &t.OwnerEmail, &t.Status, &t.Priority,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLStore) CreateTask(ctx context.Context, t *Task) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (project_id, name, description, start_date, deadline, owner_id, status, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ProjectID, t.Name, t.Description, t.StartDate, t.Deadline, t.OwnerID, t.Status, t.Priority)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrProjectNotFound
		}
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := taskSelect + ` WHERE 1=1`
	var args []any
	if filter.ProjectID != nil {
		query += ` AND t.project_id = ?`
		args = append(args, *filter.ProjectID)
	}
	if filter.OwnerID != nil {
		query += ` AND t.owner_id = ?`
		args = append(args, *filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		query += ` AND t.priority = ?`
		args = append(args, filter.Priority)
	}
	query += ` ORDER BY t.deadline ASC, t.id ASC`

	return s.queryTasks(ctx, query, args...)
}

func (s *SQLStore) TasksDueOn(ctx context.Context, date string) ([]Task, error) {
	return s.queryTasks(ctx, taskSelect+`
		WHERE t.deadline = ?
		  AND t.status != 'completed'
		  AND u.email IS NOT NULL AND u.email != ''
		ORDER BY t.id ASC`, date)
}

func (s *SQLStore) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (int64, error) {
	var sets setList
	sets.add("name", patch.Name)
	sets.add("description", patch.Description)
	sets.add("start_date", patch.StartDate)
	sets.add("deadline", patch.Deadline)
	sets.addInt("owner_id", patch.OwnerID)
	sets.add("status", patch.Status)
	sets.add("priority", patch.Priority)
	return s.update(ctx, "tasks", id, sets)
}

func (s *SQLStore) DeleteTask(ctx context.Context, id int64) (int64, error) {
	return s.delete(ctx, "tasks", id)
}
