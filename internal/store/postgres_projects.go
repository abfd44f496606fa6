package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateProjectWithOwner inserts the project and its owner-role membership in
// one transaction so a project can never exist without exactly one owner row.
func (s *PostgresStore) CreateProjectWithOwner(ctx context.Context, project Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, status, owner_id, start_date, end_date, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, project.ID, project.Name, project.Description, project.Status, project.OwnerID, project.StartDate, project.EndDate, project.Color); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, 'owner')
	`, project.ID, project.OwnerID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert owner membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, owner_id, start_date, end_date, color, created_at
		FROM projects WHERE id=$1
	`, projectID).Scan(&item.ID, &item.Name, &item.Description, &item.Status, &item.OwnerID, &item.StartDate, &item.EndDate, &item.Color, &item.CreatedAt)
	if err != nil {
		return Project{}, err
	}
	return item, nil
}

// ListProjectsForUser returns every project the user owns or is a member of.
func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.name, p.description, p.status, p.owner_id, p.start_date, p.end_date, p.color, p.created_at
		FROM projects p
		LEFT JOIN project_members pm ON pm.project_id = p.id
		WHERE p.owner_id = $1 OR pm.user_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Status, &item.OwnerID, &item.StartDate, &item.EndDate, &item.Color, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, project Project) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name=$2, description=$3, color=$4, start_date=$5, end_date=$6 WHERE id=$1
	`, project.ID, project.Name, project.Description, project.Color, project.StartDate, project.EndDate)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProjectStatus(ctx context.Context, projectID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE projects SET status=$2 WHERE id=$1`, projectID, status)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return nil
}

// DeleteProject removes the project, its memberships and invitations, and
// clears project_id on its tasks. Tasks deliberately survive as orphans.
func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET project_id=NULL WHERE project_id=$1`, projectID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("orphan tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete project: %w", err)
	}
	return nil
}

// GetMemberRole returns the caller's membership role, or "" when the user is
// not a member of the project.
func (s *PostgresStore) GetMemberRole(ctx context.Context, projectID, userID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM project_members WHERE project_id=$1 AND user_id=$2
	`, projectID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read member role: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, projectID string) ([]ProjectMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pm.project_id, pm.user_id, pm.role, u.display_name, u.email
		FROM project_members pm
		JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1
		ORDER BY pm.role, u.display_name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]ProjectMember, 0)
	for rows.Next() {
		var item ProjectMember
		if err := rows.Scan(&item.ProjectID, &item.UserID, &item.Role, &item.UserName, &item.UserEmail); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, projectID, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role=EXCLUDED.role
	`, projectID, userID, role)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// ListSharedProjectIDs returns ids of projects where the user holds a
// non-owner membership. Owner-role rows are excluded: owned projects are
// already covered by the ownership scope.
func (s *PostgresStore) ListSharedProjectIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id FROM project_members WHERE user_id=$1 AND role <> 'owner'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared project ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) InsertInvitation(ctx context.Context, item Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, project_id, email, role, status, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.ProjectID, item.Email, item.Role, item.Status, item.InvitedBy)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInvitation(ctx context.Context, invitationID string) (Invitation, error) {
	var item Invitation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, email, role, status, invited_by, created_at
		FROM invitations WHERE id=$1
	`, invitationID).Scan(&item.ID, &item.ProjectID, &item.Email, &item.Role, &item.Status, &item.InvitedBy, &item.CreatedAt)
	if err != nil {
		return Invitation{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListInvitations(ctx context.Context, projectID string) ([]Invitation, error) {
	return s.listInvitations(ctx, `WHERE project_id=$1`, projectID)
}

func (s *PostgresStore) ListInvitationsForEmail(ctx context.Context, email string) ([]Invitation, error) {
	return s.listInvitations(ctx, `WHERE email=$1 AND status='pending'`, email)
}

func (s *PostgresStore) listInvitations(ctx context.Context, where string, arg any) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, email, role, status, invited_by, created_at
		FROM invitations `+where+` ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	items := make([]Invitation, 0)
	for rows.Next() {
		var item Invitation
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Email, &item.Role, &item.Status, &item.InvitedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateInvitationStatus(ctx context.Context, invitationID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE invitations SET status=$2 WHERE id=$1`, invitationID, status)
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	return nil
}
