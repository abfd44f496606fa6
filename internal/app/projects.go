package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tandem/api/internal/rbac"
	"tandem/api/internal/store"
	"tandem/api/internal/util"
)

type ProjectInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (s *Service) CreateProject(ctx context.Context, caller store.User, input ProjectInput) (store.Project, error) {
	if caller.ID == "" {
		return store.Project{}, errUnauthenticated()
	}
	if strings.TrimSpace(input.Name) == "" {
		return store.Project{}, errValidation("Project name is required")
	}
	color := input.Color
	if color == "" {
		color = defaultColor
	}
	project := store.Project{
		ID:          util.NewID(util.IDProject),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Status:      projectActive,
		OwnerID:     caller.ID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Color:       color,
	}
	if err := s.store.CreateProjectWithOwner(ctx, project); err != nil {
		return store.Project{}, err
	}
	s.indexProject(project)
	s.logActivity(ctx, &project.ID, caller.ID, "created", entityProject, project.ID, project.Name)
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, caller store.User, projectID string) (store.Project, rbac.Role, error) {
	project, role, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView)
	if err != nil {
		return store.Project{}, "", err
	}
	return project, role, nil
}

// ListProjects returns every project the caller owns or is a member of. An
// unauthenticated read degrades to an empty list.
func (s *Service) ListProjects(ctx context.Context, caller store.User) ([]store.Project, error) {
	if caller.ID == "" {
		return []store.Project{}, nil
	}
	return s.store.ListProjectsForUser(ctx, caller.ID)
}

func (s *Service) UpdateProject(ctx context.Context, caller store.User, projectID string, input ProjectInput) (store.Project, error) {
	project, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionManage)
	if err != nil {
		return store.Project{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return store.Project{}, errValidation("Project name is required")
	}
	project.Name = strings.TrimSpace(input.Name)
	project.Description = input.Description
	if input.Color != "" {
		project.Color = input.Color
	}
	project.StartDate = input.StartDate
	project.EndDate = input.EndDate
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return store.Project{}, err
	}
	s.indexProject(project)
	s.logActivity(ctx, &project.ID, caller.ID, "updated", entityProject, project.ID, project.Name)
	return project, nil
}

func (s *Service) SetProjectStatus(ctx context.Context, caller store.User, projectID, status string) (store.Project, error) {
	project, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionManage)
	if err != nil {
		return store.Project{}, err
	}
	if status != projectActive && status != projectArchived {
		return store.Project{}, errValidation("Project status must be active or archived")
	}
	if err := s.store.UpdateProjectStatus(ctx, projectID, status); err != nil {
		return store.Project{}, err
	}
	project.Status = status
	s.logActivity(ctx, &project.ID, caller.ID, "status_changed", entityProject, project.ID, status)
	return project, nil
}

// DeleteProject is owner-only through the ownership path, never through a
// membership role. The project's tasks are orphaned, not deleted.
func (s *Service) DeleteProject(ctx context.Context, caller store.User, projectID string) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Project not found")
		}
		return err
	}
	if project.OwnerID != caller.ID {
		return errForbidden("Only the project owner can delete a project")
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.unindex(entityProject, projectID)
	s.logActivity(ctx, nil, caller.ID, "deleted", entityProject, projectID, project.Name)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, caller store.User, projectID string) ([]store.ProjectMember, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, projectID)
}

// RemoveMember drops a membership. Owners manage the roster; any non-owner
// member may remove themselves to leave. The owner row itself is untouchable.
func (s *Service) RemoveMember(ctx context.Context, caller store.User, projectID, userID string) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	project, role, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView)
	if err != nil {
		return err
	}
	if userID == project.OwnerID {
		return errValidation("The project owner cannot be removed")
	}
	if userID != caller.ID && !rbac.Can(role, rbac.ActionManage) {
		return errForbidden("Only the project owner can remove members")
	}
	if err := s.store.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	s.logActivity(ctx, &projectID, caller.ID, "member_removed", entityProject, projectID, userID)
	return nil
}

type InvitationInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Service) SendInvitation(ctx context.Context, caller store.User, projectID string, input InvitationInput) (store.Invitation, error) {
	project, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionManage)
	if err != nil {
		return store.Invitation{}, err
	}
	address := strings.ToLower(strings.TrimSpace(input.Email))
	if address == "" || !strings.Contains(address, "@") {
		return store.Invitation{}, errValidation("A valid email address is required")
	}
	if input.Role != string(rbac.RoleEditor) && input.Role != string(rbac.RoleViewer) {
		return store.Invitation{}, errValidation("Invitation role must be editor or viewer")
	}

	invitation := store.Invitation{
		ID:        util.NewID(util.IDInvitation),
		ProjectID: projectID,
		Email:     address,
		Role:      input.Role,
		Status:    invitationPending,
		InvitedBy: caller.ID,
	}
	if err := s.store.InsertInvitation(ctx, invitation); err != nil {
		return store.Invitation{}, err
	}

	if invitee, err := s.store.GetUserByEmail(ctx, address); err == nil {
		s.notify(ctx, invitee.ID, notifyInvited, invitation.ID,
			fmt.Sprintf("%s invited you to %s", caller.DisplayName, project.Name))
	}
	if s.mail != nil {
		link := fmt.Sprintf("%s/invitations/%s", s.cfg.PublicBaseURL, invitation.ID)
		if err := s.mail.SendInvitation(address, caller.DisplayName, project.Name, input.Role, link); err != nil {
			// Mail is best effort; the in-app invitation already exists.
			s.logActivity(ctx, &projectID, caller.ID, "invitation_mail_failed", entityProject, invitation.ID, err.Error())
		}
	}
	s.logActivity(ctx, &projectID, caller.ID, "invited", entityProject, projectID, address)
	return invitation, nil
}

func (s *Service) ListProjectInvitations(ctx context.Context, caller store.User, projectID string) ([]store.Invitation, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionManage); err != nil {
		return nil, err
	}
	return s.store.ListInvitations(ctx, projectID)
}

// ListMyInvitations returns the caller's pending invitations, matched by the
// email on their identity claim.
func (s *Service) ListMyInvitations(ctx context.Context, caller store.User) ([]store.Invitation, error) {
	if caller.ID == "" || caller.Email == "" {
		return []store.Invitation{}, nil
	}
	return s.store.ListInvitationsForEmail(ctx, strings.ToLower(caller.Email))
}

// AcceptInvitation turns a pending invitation addressed to the caller's email
// into a membership with the invited role.
func (s *Service) AcceptInvitation(ctx context.Context, caller store.User, invitationID string) error {
	return s.answerInvitation(ctx, caller, invitationID, true)
}

func (s *Service) DeclineInvitation(ctx context.Context, caller store.User, invitationID string) error {
	return s.answerInvitation(ctx, caller, invitationID, false)
}

func (s *Service) answerInvitation(ctx context.Context, caller store.User, invitationID string, accept bool) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	invitation, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Invitation not found")
		}
		return err
	}
	if !strings.EqualFold(invitation.Email, caller.Email) {
		return errForbidden("This invitation is addressed to a different account")
	}
	if invitation.Status != invitationPending {
		return errValidation("Invitation is no longer pending")
	}

	if !accept {
		return s.store.UpdateInvitationStatus(ctx, invitationID, invitationDeclined)
	}
	if err := s.store.AddMember(ctx, invitation.ProjectID, caller.ID, invitation.Role); err != nil {
		return err
	}
	if err := s.store.UpdateInvitationStatus(ctx, invitationID, invitationAccepted); err != nil {
		return err
	}
	s.notify(ctx, invitation.InvitedBy, notifyInviteAccepted, invitation.ProjectID,
		fmt.Sprintf("%s joined the project", caller.DisplayName))
	s.logActivity(ctx, &invitation.ProjectID, caller.ID, "joined", entityProject, invitation.ProjectID, invitation.Role)
	return nil
}

func (s *Service) RevokeInvitation(ctx context.Context, caller store.User, invitationID string) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	invitation, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Invitation not found")
		}
		return err
	}
	if _, _, err := s.requireProjectAction(ctx, caller, invitation.ProjectID, rbac.ActionManage); err != nil {
		return err
	}
	if invitation.Status != invitationPending {
		return errValidation("Invitation is no longer pending")
	}
	return s.store.UpdateInvitationStatus(ctx, invitationID, invitationRevoked)
}
