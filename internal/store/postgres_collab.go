package store

import (
	"context"
	"fmt"
	"time"
)

func (s *PostgresStore) InsertComment(ctx context.Context, item Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, entity_type, entity_id, author_id, body)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.EntityType, item.EntityID, item.AuthorID, item.Body)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var item Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, author_id, body, created_at
		FROM comments WHERE id=$1
	`, commentID).Scan(&item.ID, &item.EntityType, &item.EntityID, &item.AuthorID, &item.Body, &item.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return item, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, entityType, entityID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.entity_type, c.entity_id, c.author_id, c.body, c.created_at, u.display_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.entity_type=$1 AND c.entity_id=$2
		ORDER BY c.created_at
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.AuthorID, &item.Body, &item.CreatedAt, &item.AuthorName); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertNote(ctx context.Context, item Note) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, project_id, author_id, title, body)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.ProjectID, item.AuthorID, item.Title, item.Body)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNote(ctx context.Context, noteID string) (Note, error) {
	var item Note
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, author_id, title, body, created_at, updated_at
		FROM notes WHERE id=$1
	`, noteID).Scan(&item.ID, &item.ProjectID, &item.AuthorID, &item.Title, &item.Body, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, noteID, title, body string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notes SET title=$2, body=$3, updated_at=NOW() WHERE id=$1`, noteID, title, body)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, noteID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id=$1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotesByProject(ctx context.Context, projectID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, author_id, title, body, created_at, updated_at
		FROM notes WHERE project_id=$1 ORDER BY updated_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		var item Note
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.AuthorID, &item.Title, &item.Body, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertAttachment(ctx context.Context, item Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, entity_type, entity_id, uploader_id, file_name, object_key, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.EntityType, item.EntityID, item.UploaderID, item.FileName, item.ObjectKey, item.ContentType, item.Size)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, attachmentID string) (Attachment, error) {
	var item Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, uploader_id, file_name, object_key, content_type, size, created_at
		FROM attachments WHERE id=$1
	`, attachmentID).Scan(&item.ID, &item.EntityType, &item.EntityID, &item.UploaderID, &item.FileName, &item.ObjectKey, &item.ContentType, &item.Size, &item.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	return item, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=$1`, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, entityType, entityID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, uploader_id, file_name, object_key, content_type, size, created_at
		FROM attachments WHERE entity_type=$1 AND entity_id=$2 ORDER BY created_at
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var item Attachment
		if err := rows.Scan(&item.ID, &item.EntityType, &item.EntityID, &item.UploaderID, &item.FileName, &item.ObjectKey, &item.ContentType, &item.Size, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, item Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, ref_id, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.UserID, item.Kind, item.RefID, item.Detail)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNotification(ctx context.Context, notificationID string) (Notification, error) {
	var item Notification
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, ref_id, detail, read_at, created_at
		FROM notifications WHERE id=$1
	`, notificationID).Scan(&item.ID, &item.UserID, &item.Kind, &item.RefID, &item.Detail, &item.ReadAt, &item.CreatedAt)
	if err != nil {
		return Notification{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListNotificationsForUser(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, ref_id, detail, read_at, created_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var item Notification
		if err := rows.Scan(&item.ID, &item.UserID, &item.Kind, &item.RefID, &item.Detail, &item.ReadAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read_at=NOW() WHERE id=$1`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, notificationID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// NotificationExists is the sweep's dedup check: has this user already been
// told about this entity with this kind since the given time?
func (s *PostgresStore) NotificationExists(ctx context.Context, userID, kind, refID string, since time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id=$1 AND kind=$2 AND ref_id=$3 AND created_at >= $4
		)
	`, userID, kind, refID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertDailyReport(ctx context.Context, item DailyReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_reports (id, project_id, author_id, report_date, summary, blockers)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.ProjectID, item.AuthorID, item.ReportDate, item.Summary, item.Blockers)
	if err != nil {
		return fmt.Errorf("insert daily report: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDailyReports(ctx context.Context, projectID string) ([]DailyReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.project_id, r.author_id, r.report_date, r.summary, r.blockers, r.created_at, u.display_name
		FROM daily_reports r
		JOIN users u ON u.id = r.author_id
		WHERE r.project_id=$1
		ORDER BY r.report_date DESC, r.created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list daily reports: %w", err)
	}
	defer rows.Close()

	items := make([]DailyReport, 0)
	for rows.Next() {
		var item DailyReport
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.AuthorID, &item.ReportDate, &item.Summary, &item.Blockers, &item.CreatedAt, &item.AuthorName); err != nil {
			return nil, fmt.Errorf("scan daily report: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily reports: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, item ActivityEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, project_id, actor_id, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.ProjectID, item.ActorID, item.Action, item.EntityType, item.EntityID, item.Detail)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActivityByProject(ctx context.Context, projectID string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, actor_id, action, entity_type, entity_id, detail, created_at
		FROM activity_log WHERE project_id=$1 ORDER BY created_at DESC LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	items := make([]ActivityEntry, 0)
	for rows.Next() {
		var item ActivityEntry
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.ActorID, &item.Action, &item.EntityType, &item.EntityID, &item.Detail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return items, nil
}
