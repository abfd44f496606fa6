package store

import (
	"context"
	"fmt"
	"time"
)

func (s *PostgresStore) InsertTask(ctx context.Context, item Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, start_date, end_date, color, project_id, assignee_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, item.Title, item.Description, item.Status, item.Priority, item.StartDate, item.EndDate, item.Color, item.ProjectID, item.AssigneeID, item.OwnerID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, priority, start_date, end_date, color, project_id, assignee_id, owner_id, created_at
		FROM tasks WHERE id=$1
	`, taskID).Scan(&item.ID, &item.Title, &item.Description, &item.Status, &item.Priority, &item.StartDate, &item.EndDate, &item.Color, &item.ProjectID, &item.AssigneeID, &item.OwnerID, &item.CreatedAt)
	if err != nil {
		return Task{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, item Task) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title=$2, description=$3, priority=$4, start_date=$5, end_date=$6, color=$7, project_id=$8, assignee_id=$9
		WHERE id=$1
	`, item.ID, item.Title, item.Description, item.Priority, item.StartDate, item.EndDate, item.Color, item.ProjectID, item.AssigneeID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET status=$2 WHERE id=$1`, taskID, status)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// DeleteTask cascades to subtasks and work orders through the schema's FKs.
func (s *PostgresStore) DeleteTask(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTasksByProject(ctx context.Context, projectID string) ([]Task, error) {
	return s.listTasks(ctx, `WHERE project_id=$1`, projectID)
}

func (s *PostgresStore) ListTasksByOwner(ctx context.Context, userID string) ([]Task, error) {
	return s.listTasks(ctx, `WHERE owner_id=$1`, userID)
}

func (s *PostgresStore) listTasks(ctx context.Context, where string, arg any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, start_date, end_date, color, project_id, assignee_id, owner_id, created_at
		FROM tasks `+where+` ORDER BY created_at
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Status, &item.Priority, &item.StartDate, &item.EndDate, &item.Color, &item.ProjectID, &item.AssigneeID, &item.OwnerID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

// ListTasksDueBefore returns not-done tasks whose end date falls in
// (after, before]; used by the due-date sweep.
func (s *PostgresStore) ListTasksDueBefore(ctx context.Context, after, before time.Time) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, start_date, end_date, color, project_id, assignee_id, owner_id, created_at
		FROM tasks
		WHERE status <> 'done' AND end_date IS NOT NULL AND end_date > $1 AND end_date <= $2
		ORDER BY end_date
	`, after, before)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Status, &item.Priority, &item.StartDate, &item.EndDate, &item.Color, &item.ProjectID, &item.AssigneeID, &item.OwnerID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan due task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due tasks: %w", err)
	}
	return items, nil
}

// InsertSubtask appends the new sibling at max(existing order)+1.
func (s *PostgresStore) InsertSubtask(ctx context.Context, item Subtask) (Subtask, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO subtasks (id, task_id, title, description, status, assignee_id, start_date, end_date, ord)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			(SELECT COALESCE(MAX(ord)+1, 0) FROM subtasks WHERE task_id=$2))
		RETURNING ord, created_at
	`, item.ID, item.TaskID, item.Title, item.Description, item.Status, item.AssigneeID, item.StartDate, item.EndDate).
		Scan(&item.Order, &item.CreatedAt)
	if err != nil {
		return Subtask{}, fmt.Errorf("insert subtask: %w", err)
	}
	return item, nil
}

// InsertSubtaskWithOrder writes item.Order as-is instead of appending.
// Template clones use it so stored order values survive verbatim.
func (s *PostgresStore) InsertSubtaskWithOrder(ctx context.Context, item Subtask) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subtasks (id, task_id, title, description, status, assignee_id, start_date, end_date, ord)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.TaskID, item.Title, item.Description, item.Status, item.AssigneeID, item.StartDate, item.EndDate, item.Order)
	if err != nil {
		return fmt.Errorf("insert subtask: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSubtask(ctx context.Context, subtaskID string) (Subtask, error) {
	var item Subtask
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, title, description, status, assignee_id, start_date, end_date, ord, created_at
		FROM subtasks WHERE id=$1
	`, subtaskID).Scan(&item.ID, &item.TaskID, &item.Title, &item.Description, &item.Status, &item.AssigneeID, &item.StartDate, &item.EndDate, &item.Order, &item.CreatedAt)
	if err != nil {
		return Subtask{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateSubtask(ctx context.Context, item Subtask) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subtasks SET title=$2, description=$3, status=$4, assignee_id=$5, start_date=$6, end_date=$7
		WHERE id=$1
	`, item.ID, item.Title, item.Description, item.Status, item.AssigneeID, item.StartDate, item.EndDate)
	if err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSubtask(ctx context.Context, subtaskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id=$1`, subtaskID)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSubtasksByTask(ctx context.Context, taskID string) ([]Subtask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, title, description, status, assignee_id, start_date, end_date, ord, created_at
		FROM subtasks WHERE task_id=$1 ORDER BY ord
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	items := make([]Subtask, 0)
	for rows.Next() {
		var item Subtask
		if err := rows.Scan(&item.ID, &item.TaskID, &item.Title, &item.Description, &item.Status, &item.AssigneeID, &item.StartDate, &item.EndDate, &item.Order, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtasks: %w", err)
	}
	return items, nil
}

// ReorderSubtasks rewrites every sibling's ord to its 0-based position in
// orderedIDs. A full rewrite, not a diff.
func (s *PostgresStore) ReorderSubtasks(ctx context.Context, taskID string, orderedIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder subtasks: %w", err)
	}
	for position, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE subtasks SET ord=$3 WHERE id=$1 AND task_id=$2`, id, taskID, position); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("reorder subtask %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder subtasks: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertWorkOrder(ctx context.Context, item WorkOrder) (WorkOrder, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO work_orders (id, subtask_id, title, description, status, assignee_id, start_date, end_date, ord)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			(SELECT COALESCE(MAX(ord)+1, 0) FROM work_orders WHERE subtask_id=$2))
		RETURNING ord, created_at
	`, item.ID, item.SubtaskID, item.Title, item.Description, item.Status, item.AssigneeID, item.StartDate, item.EndDate).
		Scan(&item.Order, &item.CreatedAt)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("insert work order: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertWorkOrderWithOrder(ctx context.Context, item WorkOrder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_orders (id, subtask_id, title, description, status, assignee_id, start_date, end_date, ord)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.SubtaskID, item.Title, item.Description, item.Status, item.AssigneeID, item.StartDate, item.EndDate, item.Order)
	if err != nil {
		return fmt.Errorf("insert work order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkOrder(ctx context.Context, workOrderID string) (WorkOrder, error) {
	var item WorkOrder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subtask_id, title, description, status, assignee_id, start_date, end_date, ord, created_at
		FROM work_orders WHERE id=$1
	`, workOrderID).Scan(&item.ID, &item.SubtaskID, &item.Title, &item.Description, &item.Status, &item.AssigneeID, &item.StartDate, &item.EndDate, &item.Order, &item.CreatedAt)
	if err != nil {
		return WorkOrder{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateWorkOrder(ctx context.Context, item WorkOrder) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE work_orders SET title=$2, description=$3, status=$4, assignee_id=$5, start_date=$6, end_date=$7
		WHERE id=$1
	`, item.ID, item.Title, item.Description, item.Status, item.AssigneeID, item.StartDate, item.EndDate)
	if err != nil {
		return fmt.Errorf("update work order: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteWorkOrder(ctx context.Context, workOrderID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM work_orders WHERE id=$1`, workOrderID)
	if err != nil {
		return fmt.Errorf("delete work order: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWorkOrdersBySubtask(ctx context.Context, subtaskID string) ([]WorkOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subtask_id, title, description, status, assignee_id, start_date, end_date, ord, created_at
		FROM work_orders WHERE subtask_id=$1 ORDER BY ord
	`, subtaskID)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	items := make([]WorkOrder, 0)
	for rows.Next() {
		var item WorkOrder
		if err := rows.Scan(&item.ID, &item.SubtaskID, &item.Title, &item.Description, &item.Status, &item.AssigneeID, &item.StartDate, &item.EndDate, &item.Order, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work orders: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ReorderWorkOrders(ctx context.Context, subtaskID string, orderedIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder work orders: %w", err)
	}
	for position, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE work_orders SET ord=$3 WHERE id=$1 AND subtask_id=$2`, id, subtaskID, position); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("reorder work order %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder work orders: %w", err)
	}
	return nil
}
