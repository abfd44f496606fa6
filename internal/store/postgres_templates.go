package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertTemplate(ctx context.Context, item Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, owner_id, source_project_id, structure, task_count, subtask_count, work_order_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.Name, item.Description, item.OwnerID, item.SourceProjectID, item.Structure, item.TaskCount, item.SubtaskCount, item.WorkOrderCount)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	var item Template
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, source_project_id, structure, task_count, subtask_count, work_order_count, created_at, updated_at
		FROM templates WHERE id=$1
	`, templateID).Scan(&item.ID, &item.Name, &item.Description, &item.OwnerID, &item.SourceProjectID, &item.Structure, &item.TaskCount, &item.SubtaskCount, &item.WorkOrderCount, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Template{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListTemplatesForUser(ctx context.Context, userID string) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, owner_id, source_project_id, structure, task_count, subtask_count, work_order_count, created_at, updated_at
		FROM templates WHERE owner_id=$1 ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]Template, 0)
	for rows.Next() {
		var item Template
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.OwnerID, &item.SourceProjectID, &item.Structure, &item.TaskCount, &item.SubtaskCount, &item.WorkOrderCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return items, nil
}

// UpdateTemplateStructure overwrites the stored structure and its summary
// counts together; the counts are a cache recomputed on every structural edit.
func (s *PostgresStore) UpdateTemplateStructure(ctx context.Context, templateID, structure string, taskCount, subtaskCount, workOrderCount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET structure=$2, task_count=$3, subtask_count=$4, work_order_count=$5, updated_at=NOW()
		WHERE id=$1
	`, templateID, structure, taskCount, subtaskCount, workOrderCount)
	if err != nil {
		return fmt.Errorf("update template structure: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTemplateMeta(ctx context.Context, templateID, name, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE templates SET name=$2, description=$3, updated_at=NOW() WHERE id=$1
	`, templateID, name, description)
	if err != nil {
		return fmt.Errorf("update template meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, templateID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id=$1`, templateID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
