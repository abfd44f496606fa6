package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tandem/api/internal/rbac"
	"tandem/api/internal/store"
	"tandem/api/internal/util"
)

// entityIDPrefix maps each commentable/attachable entity type to the id
// prefix its rows carry.
var entityIDPrefix = map[string]string{
	entityProject:   util.IDProject,
	entityTask:      util.IDTask,
	entitySubtask:   util.IDSubtask,
	entityWorkOrder: util.IDWorkOrder,
}

// requireEntityAction gates an action against any commentable/attachable
// entity by resolving it to its containing task or project first. It returns
// the project id the entity lives under, when there is one, for activity
// logging.
func (s *Service) requireEntityAction(ctx context.Context, caller store.User, entityType, entityID string, action rbac.Action) (*string, error) {
	// An id whose prefix disagrees with the declared type can never resolve.
	if want, ok := entityIDPrefix[entityType]; ok && util.Prefix(entityID) != want {
		return nil, errNotFound("Entity not found")
	}
	switch entityType {
	case entityProject:
		project, _, err := s.requireProjectAction(ctx, caller, entityID, action)
		if err != nil {
			return nil, err
		}
		return &project.ID, nil
	case entityTask:
		task, err := s.requireTaskAction(ctx, caller, entityID, action)
		if err != nil {
			return nil, err
		}
		return task.ProjectID, nil
	case entitySubtask:
		subtask, err := s.store.GetSubtask(ctx, entityID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, errNotFound("Subtask not found")
			}
			return nil, err
		}
		task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, action)
		if err != nil {
			return nil, err
		}
		return task.ProjectID, nil
	case entityWorkOrder:
		_, subtask, err := s.getWorkOrderChain(ctx, entityID)
		if err != nil {
			return nil, err
		}
		task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, action)
		if err != nil {
			return nil, err
		}
		return task.ProjectID, nil
	default:
		return nil, errValidation("Unknown entity type")
	}
}

type CommentInput struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Body       string `json:"body"`
}

func (s *Service) AddComment(ctx context.Context, caller store.User, input CommentInput) (store.Comment, error) {
	if caller.ID == "" {
		return store.Comment{}, errUnauthenticated()
	}
	if strings.TrimSpace(input.Body) == "" {
		return store.Comment{}, errValidation("Comment body is required")
	}
	projectID, err := s.requireEntityAction(ctx, caller, input.EntityType, input.EntityID, rbac.ActionView)
	if err != nil {
		return store.Comment{}, err
	}
	comment := store.Comment{
		ID:         util.NewID(util.IDComment),
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		AuthorID:   caller.ID,
		Body:       input.Body,
		AuthorName: caller.DisplayName,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return store.Comment{}, err
	}
	s.logActivity(ctx, projectID, caller.ID, "commented", input.EntityType, input.EntityID, "")
	if input.EntityType == entityTask {
		if task, err := s.store.GetTask(ctx, input.EntityID); err == nil && task.OwnerID != caller.ID {
			s.notify(ctx, task.OwnerID, notifyCommented, task.ID,
				fmt.Sprintf("%s commented on %s", caller.DisplayName, task.Title))
		}
	}
	return comment, nil
}

func (s *Service) ListComments(ctx context.Context, caller store.User, entityType, entityID string) ([]store.Comment, error) {
	if _, err := s.requireEntityAction(ctx, caller, entityType, entityID, rbac.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, entityType, entityID)
}

// DeleteComment is author-only; not even the project owner removes someone
// else's words.
func (s *Service) DeleteComment(ctx context.Context, caller store.User, commentID string) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Comment not found")
		}
		return err
	}
	if comment.AuthorID != caller.ID {
		return errForbidden("Only the author can delete a comment")
	}
	return s.store.DeleteComment(ctx, commentID)
}

type NoteInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Service) AddNote(ctx context.Context, caller store.User, projectID string, input NoteInput) (store.Note, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionUpdateTasks); err != nil {
		return store.Note{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.Note{}, errValidation("Note title is required")
	}
	note := store.Note{
		ID:        util.NewID(util.IDNote),
		ProjectID: projectID,
		AuthorID:  caller.ID,
		Title:     strings.TrimSpace(input.Title),
		Body:      input.Body,
	}
	if err := s.store.InsertNote(ctx, note); err != nil {
		return store.Note{}, err
	}
	s.logActivity(ctx, &projectID, caller.ID, "created", entityNote, note.ID, note.Title)
	return note, nil
}

func (s *Service) ListNotes(ctx context.Context, caller store.User, projectID string) ([]store.Note, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListNotesByProject(ctx, projectID)
}

func (s *Service) UpdateNote(ctx context.Context, caller store.User, noteID string, input NoteInput) (store.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Note{}, errNotFound("Note not found")
		}
		return store.Note{}, err
	}
	if _, _, err := s.requireProjectAction(ctx, caller, note.ProjectID, rbac.ActionUpdateTasks); err != nil {
		return store.Note{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.Note{}, errValidation("Note title is required")
	}
	note.Title = strings.TrimSpace(input.Title)
	note.Body = input.Body
	if err := s.store.UpdateNote(ctx, noteID, note.Title, note.Body); err != nil {
		return store.Note{}, err
	}
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, caller store.User, noteID string) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Note not found")
		}
		return err
	}
	if note.AuthorID != caller.ID {
		return errForbidden("Only the author can delete a note")
	}
	return s.store.DeleteNote(ctx, noteID)
}

type AttachmentInput struct {
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// RegisteredAttachment pairs the stored metadata with a presigned PUT URL
// the client uploads the bytes to directly.
type RegisteredAttachment struct {
	Attachment store.Attachment
	UploadURL  string
}

func (s *Service) RegisterAttachment(ctx context.Context, caller store.User, input AttachmentInput) (RegisteredAttachment, error) {
	if s.blobs == nil {
		return RegisteredAttachment{}, errValidation("Attachment storage is not configured")
	}
	projectID, err := s.requireEntityAction(ctx, caller, input.EntityType, input.EntityID, rbac.ActionUpdateTasks)
	if err != nil {
		return RegisteredAttachment{}, err
	}
	if strings.TrimSpace(input.FileName) == "" {
		return RegisteredAttachment{}, errValidation("File name is required")
	}

	objectKey := fmt.Sprintf("%s/%s/%s", input.EntityType, input.EntityID, uuid.NewString())
	uploadURL, err := s.blobs.PresignUpload(ctx, objectKey, input.ContentType)
	if err != nil {
		return RegisteredAttachment{}, err
	}
	attachment := store.Attachment{
		ID:          util.NewID(util.IDAttachment),
		EntityType:  input.EntityType,
		EntityID:    input.EntityID,
		UploaderID:  caller.ID,
		FileName:    input.FileName,
		ObjectKey:   objectKey,
		ContentType: input.ContentType,
		Size:        input.Size,
	}
	if err := s.store.InsertAttachment(ctx, attachment); err != nil {
		return RegisteredAttachment{}, err
	}
	s.logActivity(ctx, projectID, caller.ID, "attached", input.EntityType, input.EntityID, input.FileName)
	return RegisteredAttachment{Attachment: attachment, UploadURL: uploadURL}, nil
}

func (s *Service) ListAttachments(ctx context.Context, caller store.User, entityType, entityID string) ([]store.Attachment, error) {
	if _, err := s.requireEntityAction(ctx, caller, entityType, entityID, rbac.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, entityType, entityID)
}

// AttachmentURL returns a short-lived presigned download link.
func (s *Service) AttachmentURL(ctx context.Context, caller store.User, attachmentID string) (string, error) {
	if s.blobs == nil {
		return "", errValidation("Attachment storage is not configured")
	}
	attachment, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		if store.IsNotFound(err) {
			return "", errNotFound("Attachment not found")
		}
		return "", err
	}
	if _, err := s.requireEntityAction(ctx, caller, attachment.EntityType, attachment.EntityID, rbac.ActionView); err != nil {
		return "", err
	}
	return s.blobs.PresignDownload(ctx, attachment.ObjectKey, attachment.FileName)
}

func (s *Service) DeleteAttachment(ctx context.Context, caller store.User, attachmentID string) error {
	if caller.ID == "" {
		return errUnauthenticated()
	}
	attachment, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Attachment not found")
		}
		return err
	}
	if attachment.UploaderID != caller.ID {
		return errForbidden("Only the uploader can delete an attachment")
	}
	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	if s.blobs != nil {
		if err := s.blobs.Remove(ctx, attachment.ObjectKey); err != nil {
			// Metadata is gone; an orphaned object is harmless.
			s.logActivity(ctx, nil, caller.ID, "blob_remove_failed", attachment.EntityType, attachmentID, err.Error())
		}
	}
	return nil
}

func (s *Service) ListNotifications(ctx context.Context, caller store.User) ([]store.Notification, error) {
	if caller.ID == "" {
		return []store.Notification{}, nil
	}
	return s.store.ListNotificationsForUser(ctx, caller.ID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, caller store.User, notificationID string) error {
	notification, err := s.requireOwnNotification(ctx, caller, notificationID)
	if err != nil {
		return err
	}
	return s.store.MarkNotificationRead(ctx, notification.ID)
}

func (s *Service) DeleteNotification(ctx context.Context, caller store.User, notificationID string) error {
	notification, err := s.requireOwnNotification(ctx, caller, notificationID)
	if err != nil {
		return err
	}
	return s.store.DeleteNotification(ctx, notification.ID)
}

func (s *Service) requireOwnNotification(ctx context.Context, caller store.User, notificationID string) (store.Notification, error) {
	if caller.ID == "" {
		return store.Notification{}, errUnauthenticated()
	}
	notification, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Notification{}, errNotFound("Notification not found")
		}
		return store.Notification{}, err
	}
	if notification.UserID != caller.ID {
		return store.Notification{}, errNotFound("Notification not found")
	}
	return notification, nil
}

type DailyReportInput struct {
	ReportDate time.Time `json:"reportDate"`
	Summary    string    `json:"summary"`
	Blockers   string    `json:"blockers"`
}

func (s *Service) AddDailyReport(ctx context.Context, caller store.User, projectID string, input DailyReportInput) (store.DailyReport, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionReport); err != nil {
		return store.DailyReport{}, err
	}
	if strings.TrimSpace(input.Summary) == "" {
		return store.DailyReport{}, errValidation("Report summary is required")
	}
	reportDate := input.ReportDate
	if reportDate.IsZero() {
		reportDate = time.Now()
	}
	report := store.DailyReport{
		ID:         util.NewID(util.IDReport),
		ProjectID:  projectID,
		AuthorID:   caller.ID,
		ReportDate: reportDate,
		Summary:    input.Summary,
		Blockers:   input.Blockers,
		AuthorName: caller.DisplayName,
	}
	if err := s.store.InsertDailyReport(ctx, report); err != nil {
		return store.DailyReport{}, err
	}
	s.logActivity(ctx, &projectID, caller.ID, "reported", entityProject, projectID, reportDate.Format("2006-01-02"))
	return report, nil
}

func (s *Service) ListDailyReports(ctx context.Context, caller store.User, projectID string) ([]store.DailyReport, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListDailyReports(ctx, projectID)
}

func (s *Service) ListProjectActivity(ctx context.Context, caller store.User, projectID string, limit int) ([]store.ActivityEntry, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView); err != nil {
		return nil, err
	}
	return s.store.ListActivityByProject(ctx, projectID, limit)
}
