package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const projectStatsSelect = `
	SELECT
		p.id, p.name, p.description, p.start_date, p.end_date, p.owner_id,
		u.name, p.status, p.color, p.created_at, p.updated_at,
		COUNT(t.id),
		COALESCE(SUM(CASE WHEN t.status = 'completed' THEN 1 ELSE 0 END), 0)
	FROM projects p
	LEFT JOIN users u ON p.owner_id = u.id
	LEFT JOIN tasks t ON t.project_id = p.id`

func projectFields(p *Project) []any {
	return []any{
		&p.ID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.OwnerID,
		&p.OwnerName, &p.Status, &p.Color, &p.CreatedAt, &p.UpdatedAt,
	}
}

func scanProjectWithStats(row scanner) (*Project, error) {
	var p Project
	var total, completed int
	if err := row.Scan(append(projectFields(&p), &total, &completed)...); err != nil {
		return nil, err
	}
	p.TaskCount = &total
	p.CompletedTaskCount = &completed
	return &p, nil
}

func (s *SQLStore) CreateProject(ctx context.Context, p *Project) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, description, start_date, end_date, owner_id, status, color)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.StartDate, p.EndDate, p.OwnerID, p.Status, p.Color)
	if err != nil {
		return 0, fmt.Errorf("failed to insert project: %w", err)
	}
	return res.LastInsertId()
}

// GetProject returns the joined project with its task counts.
func (s *SQLStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, projectStatsSelect+` WHERE p.id = ? GROUP BY p.id`, id)
	p, err := scanProjectWithStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	query := projectStatsSelect + ` WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND p.status = ?`
		args = append(args, filter.Status)
	}
	if filter.OwnerID != nil {
		query += ` AND p.owner_id = ?`
		args = append(args, *filter.OwnerID)
	}
	query += ` GROUP BY p.id ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProjectWithStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *SQLStore) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (int64, error) {
	var sets setList
	sets.add("name", patch.Name)
	sets.add("description", patch.Description)
	sets.add("start_date", patch.StartDate)
	sets.add("end_date", patch.EndDate)
	sets.addInt("owner_id", patch.OwnerID)
	sets.add("status", patch.Status)
	sets.add("color", patch.Color)
	return s.update(ctx, "projects", id, sets)
}

// DeleteProject relies on ON DELETE CASCADE to remove the project's tasks.
func (s *SQLStore) DeleteProject(ctx context.Context, id int64) (int64, error) {
	return s.delete(ctx, "projects", id)
}
