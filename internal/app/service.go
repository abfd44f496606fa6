// Package app holds the application core: the access gate, the roll-up
// aggregator, the view flatteners, templates, collaboration features and the
// HTTP surface that exposes them.
package app

import (
	"context"
	"log"
	"time"

	"tandem/api/internal/auth"
	"tandem/api/internal/authpw"
	"tandem/api/internal/blob"
	"tandem/api/internal/config"
	"tandem/api/internal/email"
	"tandem/api/internal/export"
	"tandem/api/internal/rbac"
	"tandem/api/internal/search"
	"tandem/api/internal/store"
	"tandem/api/internal/util"
)

// dataStore is everything the service needs from persistence. *store.PostgresStore
// satisfies it; tests swap in a fake.
type dataStore interface {
	Ping(ctx context.Context) error

	// Users and identity
	UpsertUserBySubject(ctx context.Context, subject, name, email, avatarURL string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	// Projects and membership
	CreateProjectWithOwner(ctx context.Context, project store.Project) error
	GetProject(ctx context.Context, projectID string) (store.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]store.Project, error)
	UpdateProject(ctx context.Context, project store.Project) error
	UpdateProjectStatus(ctx context.Context, projectID, status string) error
	DeleteProject(ctx context.Context, projectID string) error
	GetMemberRole(ctx context.Context, projectID, userID string) (string, error)
	ListMembers(ctx context.Context, projectID string) ([]store.ProjectMember, error)
	AddMember(ctx context.Context, projectID, userID, role string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	ListSharedProjectIDs(ctx context.Context, userID string) ([]string, error)

	// Invitations
	InsertInvitation(ctx context.Context, item store.Invitation) error
	GetInvitation(ctx context.Context, invitationID string) (store.Invitation, error)
	ListInvitations(ctx context.Context, projectID string) ([]store.Invitation, error)
	ListInvitationsForEmail(ctx context.Context, email string) ([]store.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, invitationID, status string) error

	// Tasks, subtasks, work orders
	InsertTask(ctx context.Context, item store.Task) error
	GetTask(ctx context.Context, taskID string) (store.Task, error)
	UpdateTask(ctx context.Context, item store.Task) error
	UpdateTaskStatus(ctx context.Context, taskID, status string) error
	DeleteTask(ctx context.Context, taskID string) error
	ListTasksByProject(ctx context.Context, projectID string) ([]store.Task, error)
	ListTasksByOwner(ctx context.Context, userID string) ([]store.Task, error)
	ListTasksDueBefore(ctx context.Context, after, before time.Time) ([]store.Task, error)
	InsertSubtask(ctx context.Context, item store.Subtask) (store.Subtask, error)
	InsertSubtaskWithOrder(ctx context.Context, item store.Subtask) error
	GetSubtask(ctx context.Context, subtaskID string) (store.Subtask, error)
	UpdateSubtask(ctx context.Context, item store.Subtask) error
	DeleteSubtask(ctx context.Context, subtaskID string) error
	ListSubtasksByTask(ctx context.Context, taskID string) ([]store.Subtask, error)
	ReorderSubtasks(ctx context.Context, taskID string, orderedIDs []string) error
	InsertWorkOrder(ctx context.Context, item store.WorkOrder) (store.WorkOrder, error)
	InsertWorkOrderWithOrder(ctx context.Context, item store.WorkOrder) error
	GetWorkOrder(ctx context.Context, workOrderID string) (store.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, item store.WorkOrder) error
	DeleteWorkOrder(ctx context.Context, workOrderID string) error
	ListWorkOrdersBySubtask(ctx context.Context, subtaskID string) ([]store.WorkOrder, error)
	ReorderWorkOrders(ctx context.Context, subtaskID string, orderedIDs []string) error

	// Collaboration
	InsertComment(ctx context.Context, item store.Comment) error
	GetComment(ctx context.Context, commentID string) (store.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	ListComments(ctx context.Context, entityType, entityID string) ([]store.Comment, error)
	InsertNote(ctx context.Context, item store.Note) error
	GetNote(ctx context.Context, noteID string) (store.Note, error)
	UpdateNote(ctx context.Context, noteID, title, body string) error
	DeleteNote(ctx context.Context, noteID string) error
	ListNotesByProject(ctx context.Context, projectID string) ([]store.Note, error)
	InsertAttachment(ctx context.Context, item store.Attachment) error
	GetAttachment(ctx context.Context, attachmentID string) (store.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error
	ListAttachments(ctx context.Context, entityType, entityID string) ([]store.Attachment, error)
	InsertNotification(ctx context.Context, item store.Notification) error
	GetNotification(ctx context.Context, notificationID string) (store.Notification, error)
	ListNotificationsForUser(ctx context.Context, userID string) ([]store.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	DeleteNotification(ctx context.Context, notificationID string) error
	NotificationExists(ctx context.Context, userID, kind, refID string, since time.Time) (bool, error)
	InsertDailyReport(ctx context.Context, item store.DailyReport) error
	ListDailyReports(ctx context.Context, projectID string) ([]store.DailyReport, error)
	InsertActivity(ctx context.Context, item store.ActivityEntry) error
	ListActivityByProject(ctx context.Context, projectID string, limit int) ([]store.ActivityEntry, error)

	// Templates
	InsertTemplate(ctx context.Context, item store.Template) error
	GetTemplate(ctx context.Context, templateID string) (store.Template, error)
	ListTemplatesForUser(ctx context.Context, userID string) ([]store.Template, error)
	UpdateTemplateStructure(ctx context.Context, templateID, structure string, taskCount, subtaskCount, workOrderCount int) error
	UpdateTemplateMeta(ctx context.Context, templateID, name, description string) error
	DeleteTemplate(ctx context.Context, templateID string) error
}

// sessionStore holds refresh sessions. Redis when configured, Postgres otherwise.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	search    *search.Service
	blobs     *blob.Service
	mail      *email.Service
	export    *export.Service
}

func New(cfg config.Config, st *store.PostgresStore) *Service {
	return &Service{cfg: cfg, store: st, sessions: st}
}

// UseSessionStore swaps the refresh-session backend (Redis in production).
func (s *Service) UseSessionStore(sessions sessionStore) { s.sessions = sessions }

// UsePasswordAuth enables email/password signup and signin.
func (s *Service) UsePasswordAuth(svc *authpw.Service) { s.passwords = svc }

// PasswordAuth returns the password auth service, nil when not configured.
func (s *Service) PasswordAuth() *authpw.Service { return s.passwords }

func (s *Service) UseSearch(svc *search.Service)   { s.search = svc }
func (s *Service) UseBlobStore(svc *blob.Service)  { s.blobs = svc }
func (s *Service) UseMailer(svc *email.Service)    { s.mail = svc }
func (s *Service) UseExporter(svc *export.Service) { s.export = svc }

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Session is what a successful signin/refresh hands back to the client.
type Session struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	User         store.User `json:"-"`
}

// StartSession issues an access/refresh token pair for an already
// authenticated user.
func (s *Service) StartSession(ctx context.Context, user store.User) (Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:    user.Subject,
		Name:   user.DisplayName,
		Email:  user.Email,
		Avatar: user.AvatarURL,
		JTI:    util.NewID(util.IDTokenClaim),
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refreshToken := util.NewID(util.IDRefreshToken)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refreshToken), user.ID, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}
	return Session{Token: token, RefreshToken: refreshToken, ExpiresAt: expiresAt, User: user}, nil
}

// ResolveCaller verifies an access token and returns the caller it belongs
// to, provisioning the user row on first sight of the subject. Every gated
// operation takes the resolved caller explicitly.
func (s *Service) ResolveCaller(ctx context.Context, token string) (store.User, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return store.User{}, errUnauthenticated()
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return store.User{}, err
	}
	if revoked {
		return store.User{}, errUnauthenticated()
	}
	user, err := s.store.UpsertUserBySubject(ctx, claims.Sub, claims.Name, claims.Email, claims.Avatar)
	if err != nil {
		return store.User{}, err
	}
	return user, nil
}

// RefreshSession rotates a refresh token: the presented token is revoked and
// a fresh pair is issued.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	hash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, hash)
	if err != nil {
		// Unknown, expired and revoked tokens all land here.
		return Session{}, errUnauthenticated()
	}
	// The Redis backend stores only the user id; refetch the profile so the
	// new access token carries current claims.
	if user.Subject == "" {
		full, err := s.store.GetUserByID(ctx, user.ID)
		if err != nil {
			return Session{}, errUnauthenticated()
		}
		user = full
	}
	if err := s.sessions.RevokeRefreshSession(ctx, hash); err != nil {
		return Session{}, err
	}
	return s.StartSession(ctx, user)
}

// Logout revokes both halves of a session. The access token is denylisted
// until its natural expiry; a malformed access token is ignored so logout
// still clears the refresh session.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), accessToken); err == nil {
		if err := s.store.RevokeAccessToken(ctx, claims.JTI, time.Unix(claims.Exp, 0)); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			return err
		}
	}
	return nil
}

// projectRole resolves the caller's effective role on a project. Project
// ownership wins; otherwise the membership row decides. Empty string means
// no access at all.
func (s *Service) projectRole(ctx context.Context, project store.Project, userID string) (rbac.Role, error) {
	if userID == "" {
		return "", nil
	}
	if project.OwnerID == userID {
		return rbac.RoleOwner, nil
	}
	role, err := s.store.GetMemberRole(ctx, project.ID, userID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", nil
	}
	return rbac.Normalize(role), nil
}

// requireProjectAction loads the project and gates the caller's action on it.
// Non-members get the same not-found as a missing project.
func (s *Service) requireProjectAction(ctx context.Context, caller store.User, projectID string, action rbac.Action) (store.Project, rbac.Role, error) {
	if caller.ID == "" {
		return store.Project{}, "", errUnauthenticated()
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Project{}, "", errNotFound("Project not found")
		}
		return store.Project{}, "", err
	}
	role, err := s.projectRole(ctx, project, caller.ID)
	if err != nil {
		return store.Project{}, "", err
	}
	if role == "" {
		return store.Project{}, "", errNotFound("Project not found")
	}
	if !rbac.Can(role, action) {
		return store.Project{}, "", errForbidden("Insufficient project role")
	}
	return project, role, nil
}

// logActivity records a project-scoped audit entry. Best effort: a failed
// write is logged, never surfaced to the caller.
func (s *Service) logActivity(ctx context.Context, projectID *string, actorID, action, entityType, entityID, detail string) {
	entry := store.ActivityEntry{
		ID:         util.NewID(util.IDActivity),
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}
	if err := s.store.InsertActivity(ctx, entry); err != nil {
		log.Printf("activity log write failed: %v", err)
	}
}

// notify delivers an in-app notification to its single target user. Like
// activity, delivery is best effort.
func (s *Service) notify(ctx context.Context, userID, kind, refID, detail string) {
	item := store.Notification{
		ID:     util.NewID(util.IDNotification),
		UserID: userID,
		Kind:   kind,
		RefID:  refID,
		Detail: detail,
	}
	if err := s.store.InsertNotification(ctx, item); err != nil {
		log.Printf("notification write failed: %v", err)
	}
}

func (s *Service) indexProject(project store.Project) {
	if s.search == nil {
		return
	}
	s.search.IndexProject(search.ProjectRecord{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
	})
}

func (s *Service) indexTask(task store.Task) {
	if s.search == nil {
		return
	}
	s.search.IndexTask(search.TaskRecord{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		ProjectID:   deref(task.ProjectID),
	})
}

func (s *Service) unindex(kind, id string) {
	if s.search == nil {
		return
	}
	switch kind {
	case entityProject:
		s.search.DeleteProject(id)
	case entityTask:
		s.search.DeleteTask(id)
	}
}

// Search runs a full-text query and keeps only hits the caller can see:
// projects they own or belong to, and tasks in their accessible scope.
func (s *Service) Search(ctx context.Context, caller store.User, q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	if caller.ID == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}

	projects, err := s.store.ListProjectsForUser(ctx, caller.ID)
	if err != nil {
		return search.Response{}, err
	}
	visibleProjects := make(map[string]bool, len(projects))
	for _, project := range projects {
		visibleProjects[project.ID] = true
	}
	tasks, err := s.accessibleTasks(ctx, caller)
	if err != nil {
		return search.Response{}, err
	}
	visibleTasks := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		visibleTasks[task.ID] = true
	}

	response := s.search.Search(q)
	filtered := make([]search.Result, 0, len(response.Results))
	for _, result := range response.Results {
		switch result.Kind {
		case search.ResultProject:
			if visibleProjects[result.ID] {
				filtered = append(filtered, result)
			}
		case search.ResultTask:
			if visibleTasks[result.ID] {
				filtered = append(filtered, result)
			}
		}
	}
	response.Results = filtered
	response.Total = len(filtered)
	return response, nil
}
