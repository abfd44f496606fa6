package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tandem/api/internal/auth"
	"tandem/api/internal/authpw"
	"tandem/api/internal/search"
	"tandem/api/internal/store"
	"tandem/api/internal/templates"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "user": nil})
			return
		}
		caller, err := s.service.ResolveCaller(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "user": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": userJSON(caller)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.RefreshSession(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), bearerToken(r), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// Everything below takes an optional bearer token. A present but invalid
	// token is rejected; an absent token leaves the caller anonymous and the
	// service decides what anonymous callers may see.
	caller := store.User{}
	if token := bearerToken(r); token != "" {
		resolved, err := s.service.ResolveCaller(r.Context(), token)
		if err != nil {
			writeMapped(w, err)
			return
		}
		caller = resolved
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "projects":
		s.handleProjects(w, r, caller, parts[2:])
	case "tasks":
		s.handleTasks(w, r, caller, parts[2:])
	case "subtasks":
		s.handleSubtasks(w, r, caller, parts[2:])
	case "workorders":
		s.handleWorkOrders(w, r, caller, parts[2:])
	case "views":
		s.handleViews(w, r, caller, parts[2:])
	case "comments":
		s.handleComments(w, r, caller, parts[2:])
	case "notes":
		s.handleNotes(w, r, caller, parts[2:])
	case "attachments":
		s.handleAttachments(w, r, caller, parts[2:])
	case "notifications":
		s.handleNotifications(w, r, caller, parts[2:])
	case "templates":
		s.handleTemplates(w, r, caller, parts[2:])
	case "invitations":
		s.handleInvitations(w, r, caller, parts[2:])
	case "search":
		s.handleSearch(w, r, caller)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListProjects(r.Context(), caller)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(items))
			for _, item := range items {
				payload = append(payload, projectJSON(item))
			}
			writeJSON(w, http.StatusOK, map[string]any{"projects": payload})
		case http.MethodPost:
			var input ProjectInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.CreateProject(r.Context(), caller, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, projectJSON(project))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	projectID := rest[0]

	if len(rest) == 1 {
		switch r.Method {
		case http.MethodGet:
			project, role, err := s.service.GetProject(r.Context(), caller, projectID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := projectJSON(project)
			payload["role"] = role
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var input ProjectInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.UpdateProject(r.Context(), caller, projectID, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, projectJSON(project))
		case http.MethodDelete:
			if err := s.service.DeleteProject(r.Context(), caller, projectID); err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 2 {
		switch rest[1] {
		case "status":
			if r.Method != http.MethodPut {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.SetProjectStatus(r.Context(), caller, projectID, body.Status)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, projectJSON(project))
			return
		case "members":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			members, err := s.service.ListMembers(r.Context(), caller, projectID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(members))
			for _, member := range members {
				payload = append(payload, memberJSON(member))
			}
			writeJSON(w, http.StatusOK, map[string]any{"members": payload})
			return
		case "invitations":
			switch r.Method {
			case http.MethodGet:
				items, err := s.service.ListProjectInvitations(r.Context(), caller, projectID)
				if err != nil {
					writeMapped(w, err)
					return
				}
				payload := make([]map[string]any, 0, len(items))
				for _, item := range items {
					payload = append(payload, invitationJSON(item))
				}
				writeJSON(w, http.StatusOK, map[string]any{"invitations": payload})
			case http.MethodPost:
				var input InvitationInput
				if err := decodeBody(r, &input); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				invitation, err := s.service.SendInvitation(r.Context(), caller, projectID, input)
				if err != nil {
					writeMapped(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, invitationJSON(invitation))
			default:
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			}
			return
		case "tasks":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			details, err := s.service.ListProjectTasks(r.Context(), caller, projectID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(details))
			for _, detail := range details {
				payload = append(payload, taskDetailJSON(detail))
			}
			writeJSON(w, http.StatusOK, map[string]any{"tasks": payload})
			return
		case "notes":
			switch r.Method {
			case http.MethodGet:
				notes, err := s.service.ListNotes(r.Context(), caller, projectID)
				if err != nil {
					writeMapped(w, err)
					return
				}
				payload := make([]map[string]any, 0, len(notes))
				for _, note := range notes {
					payload = append(payload, noteJSON(note))
				}
				writeJSON(w, http.StatusOK, map[string]any{"notes": payload})
			case http.MethodPost:
				var input NoteInput
				if err := decodeBody(r, &input); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				note, err := s.service.AddNote(r.Context(), caller, projectID, input)
				if err != nil {
					writeMapped(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, noteJSON(note))
			default:
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			}
			return
		case "reports":
			switch r.Method {
			case http.MethodGet:
				reports, err := s.service.ListDailyReports(r.Context(), caller, projectID)
				if err != nil {
					writeMapped(w, err)
					return
				}
				payload := make([]map[string]any, 0, len(reports))
				for _, report := range reports {
					payload = append(payload, dailyReportJSON(report))
				}
				writeJSON(w, http.StatusOK, map[string]any{"reports": payload})
			case http.MethodPost:
				var input DailyReportInput
				if err := decodeBody(r, &input); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				report, err := s.service.AddDailyReport(r.Context(), caller, projectID, input)
				if err != nil {
					writeMapped(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, dailyReportJSON(report))
			default:
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			}
			return
		case "activity":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			limit := 50
			if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
					return
				}
				limit = parsed
			}
			entries, err := s.service.ListProjectActivity(r.Context(), caller, projectID, limit)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(entries))
			for _, entry := range entries {
				payload = append(payload, activityJSON(entry))
			}
			writeJSON(w, http.StatusOK, map[string]any{"activity": payload})
			return
		case "export":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			result, err := s.service.ExportProjectPDF(r.Context(), caller, projectID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			w.Header().Set("Content-Type", result.MimeType)
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(result.Data)
			return
		}
	}

	if len(rest) == 3 && rest[1] == "members" {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if err := s.service.RemoveMember(r.Context(), caller, projectID, rest[2]); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleTasks(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var input TaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		task, err := s.service.CreateTask(r.Context(), caller, input)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, taskJSON(task))
		return
	}

	taskID := rest[0]

	if len(rest) == 1 {
		switch r.Method {
		case http.MethodGet:
			detail, err := s.service.GetTaskDetail(r.Context(), caller, taskID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, taskDetailJSON(detail))
		case http.MethodPut:
			var input TaskInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			task, err := s.service.UpdateTask(r.Context(), caller, taskID, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, taskJSON(task))
		case http.MethodDelete:
			if err := s.service.DeleteTask(r.Context(), caller, taskID); err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 2 && rest[1] == "status" {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		task, err := s.service.SetTaskStatus(r.Context(), caller, taskID, body.Status)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskJSON(task))
		return
	}

	if len(rest) == 2 && rest[1] == "subtasks" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var input SubtaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		subtask, err := s.service.AddSubtask(r.Context(), caller, taskID, input)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, subtaskJSON(subtask))
		return
	}

	if len(rest) == 3 && rest[1] == "subtasks" && rest[2] == "reorder" {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ReorderSubtasks(r.Context(), caller, taskID, body.IDs); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSubtasks(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	subtaskID := rest[0]

	if len(rest) == 1 {
		switch r.Method {
		case http.MethodPut:
			var input SubtaskInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			subtask, err := s.service.UpdateSubtask(r.Context(), caller, subtaskID, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, subtaskJSON(subtask))
		case http.MethodDelete:
			if err := s.service.DeleteSubtask(r.Context(), caller, subtaskID); err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 2 && rest[1] == "workorders" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var input SubtaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		workOrder, err := s.service.AddWorkOrder(r.Context(), caller, subtaskID, input)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, workOrderJSON(workOrder))
		return
	}

	if len(rest) == 3 && rest[1] == "workorders" && rest[2] == "reorder" {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ReorderWorkOrders(r.Context(), caller, subtaskID, body.IDs); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleWorkOrders(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	workOrderID := rest[0]

	switch r.Method {
	case http.MethodPut:
		var input SubtaskInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		workOrder, err := s.service.UpdateWorkOrder(r.Context(), caller, workOrderID, input)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, workOrderJSON(workOrder))
	case http.MethodDelete:
		if err := s.service.DeleteWorkOrder(r.Context(), caller, workOrderID); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleViews(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) != 1 || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch rest[0] {
	case "board":
		items, err := s.service.BoardView(r.Context(), caller)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case "calendar":
		view, err := s.service.CalendarView(r.Context(), caller)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case "gantt":
		rows, err := s.service.GanttView(r.Context(), caller)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
	case "analytics":
		view, err := s.service.AnalyticsView(r.Context(), caller)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleComments(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			entityType := strings.TrimSpace(r.URL.Query().Get("entityType"))
			entityID := strings.TrimSpace(r.URL.Query().Get("entityId"))
			comments, err := s.service.ListComments(r.Context(), caller, entityType, entityID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(comments))
			for _, comment := range comments {
				payload = append(payload, commentJSON(comment))
			}
			writeJSON(w, http.StatusOK, map[string]any{"comments": payload})
		case http.MethodPost:
			var input CommentInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			comment, err := s.service.AddComment(r.Context(), caller, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, commentJSON(comment))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := s.service.DeleteComment(r.Context(), caller, rest[0]); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleNotes(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	noteID := rest[0]

	switch r.Method {
	case http.MethodPut:
		var input NoteInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		note, err := s.service.UpdateNote(r.Context(), caller, noteID, input)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, noteJSON(note))
	case http.MethodDelete:
		if err := s.service.DeleteNote(r.Context(), caller, noteID); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleAttachments(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			entityType := strings.TrimSpace(r.URL.Query().Get("entityType"))
			entityID := strings.TrimSpace(r.URL.Query().Get("entityId"))
			attachments, err := s.service.ListAttachments(r.Context(), caller, entityType, entityID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(attachments))
			for _, attachment := range attachments {
				payload = append(payload, attachmentJSON(attachment))
			}
			writeJSON(w, http.StatusOK, map[string]any{"attachments": payload})
		case http.MethodPost:
			var input AttachmentInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			registered, err := s.service.RegisterAttachment(r.Context(), caller, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := attachmentJSON(registered.Attachment)
			payload["uploadUrl"] = registered.UploadURL
			writeJSON(w, http.StatusCreated, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := s.service.DeleteAttachment(r.Context(), caller, rest[0]); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(rest) == 2 && rest[1] == "url" && r.Method == http.MethodGet {
		url, err := s.service.AttachmentURL(r.Context(), caller, rest[0])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"url": url})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		items, err := s.service.ListNotifications(r.Context(), caller)
		if err != nil {
			writeMapped(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, notificationJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"notifications": payload})
		return
	}

	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := s.service.DeleteNotification(r.Context(), caller, rest[0]); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(rest) == 2 && rest[1] == "read" && r.Method == http.MethodPut {
		if err := s.service.MarkNotificationRead(r.Context(), caller, rest[0]); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleTemplates(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListTemplates(r.Context(), caller)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(items))
			for _, item := range items {
				payload = append(payload, templateJSON(item))
			}
			writeJSON(w, http.StatusOK, map[string]any{"templates": payload})
		case http.MethodPost:
			var input TemplateInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			template, err := s.service.SaveTemplateFromProject(r.Context(), caller, input)
			if err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, templateJSON(template))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	templateID := rest[0]

	if len(rest) == 1 {
		switch r.Method {
		case http.MethodGet:
			template, structure, err := s.service.GetTemplate(r.Context(), caller, templateID)
			if err != nil {
				writeMapped(w, err)
				return
			}
			payload := templateJSON(template)
			payload["structure"] = structure
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var body struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.UpdateTemplateMeta(r.Context(), caller, templateID, body.Name, body.Description); err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		case http.MethodDelete:
			if err := s.service.DeleteTemplate(r.Context(), caller, templateID); err != nil {
				writeMapped(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(rest) == 2 && rest[1] == "structure" {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var structure templates.Structure
		if err := decodeBody(r, &structure); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		normalized, err := s.service.EditTemplateStructure(r.Context(), caller, templateID, structure)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"structure": normalized})
		return
	}

	if len(rest) == 2 && rest[1] == "clone" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var input ProjectInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		project, err := s.service.CloneTemplateToProject(r.Context(), caller, templateID, input)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, projectJSON(project))
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleInvitations(w http.ResponseWriter, r *http.Request, caller store.User, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		items, err := s.service.ListMyInvitations(r.Context(), caller)
		if err != nil {
			writeMapped(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, invitationJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"invitations": payload})
		return
	}

	if len(rest) == 2 && r.Method == http.MethodPost {
		invitationID := rest[0]
		var err error
		switch rest[1] {
		case "accept":
			err = s.service.AcceptInvitation(r.Context(), caller, invitationID)
		case "decline":
			err = s.service.DeclineInvitation(r.Context(), caller, invitationID)
		case "revoke":
			err = s.service.RevokeInvitation(r.Context(), caller, invitationID)
		default:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, caller store.User) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	query := search.Query{
		Text:            strings.TrimSpace(r.URL.Query().Get("q")),
		FilterKind:      search.ResultKind(strings.TrimSpace(r.URL.Query().Get("kind"))),
		FilterProjectID: strings.TrimSpace(r.URL.Query().Get("projectId")),
		Limit:           20,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		query.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		query.Offset = parsed
	}
	response, err := s.service.Search(r.Context(), caller, query)
	if err != nil {
		writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// Auth handlers for email/password authentication

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	authSvc := s.service.PasswordAuth()
	if authSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service not configured", nil)
		return
	}

	var body authpw.SignUpRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	user, err := authSvc.SignUp(r.Context(), body)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	session, err := s.service.StartSession(r.Context(), user)
	if err != nil {
		writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionJSON(session))
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	authSvc := s.service.PasswordAuth()
	if authSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Authentication service not configured", nil)
		return
	}

	var body authpw.SignInRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	user, err := authSvc.SignIn(r.Context(), body)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	session, err := s.service.StartSession(r.Context(), user)
	if err != nil {
		writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(session))
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authpw.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	case errors.Is(err, authpw.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, authpw.ErrWeakPassword), errors.Is(err, authpw.ErrMissingFields):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
	}
}

// JSON rendering. Store models carry no json tags, so the HTTP layer owns the
// wire shape.

func userJSON(u store.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.DisplayName,
		"email":     u.Email,
		"avatarUrl": u.AvatarURL,
	}
}

func sessionJSON(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"expiresAt":    session.ExpiresAt,
		"user":         userJSON(session.User),
	}
}

func projectJSON(p store.Project) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"status":      p.Status,
		"ownerId":     p.OwnerID,
		"startDate":   p.StartDate,
		"endDate":     p.EndDate,
		"color":       p.Color,
		"createdAt":   p.CreatedAt,
	}
}

func taskJSON(t store.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
		"startDate":   t.StartDate,
		"endDate":     t.EndDate,
		"color":       t.Color,
		"projectId":   t.ProjectID,
		"assigneeId":  t.AssigneeID,
		"ownerId":     t.OwnerID,
		"createdAt":   t.CreatedAt,
	}
}

func taskDetailJSON(detail TaskDetail) map[string]any {
	subtasks := make([]map[string]any, 0, len(detail.Subtasks))
	for _, subtask := range detail.Subtasks {
		subtasks = append(subtasks, subtaskDetailJSON(subtask))
	}
	payload := taskJSON(detail.Task)
	payload["progress"] = detail.Progress
	payload["subtasks"] = subtasks
	return payload
}

func subtaskJSON(st store.Subtask) map[string]any {
	return map[string]any{
		"id":          st.ID,
		"taskId":      st.TaskID,
		"title":       st.Title,
		"description": st.Description,
		"status":      st.Status,
		"assigneeId":  st.AssigneeID,
		"startDate":   st.StartDate,
		"endDate":     st.EndDate,
		"order":       st.Order,
		"createdAt":   st.CreatedAt,
	}
}

func subtaskDetailJSON(detail SubtaskDetail) map[string]any {
	workOrders := make([]map[string]any, 0, len(detail.WorkOrders))
	for _, workOrder := range detail.WorkOrders {
		workOrders = append(workOrders, workOrderJSON(workOrder))
	}
	payload := subtaskJSON(detail.Subtask)
	payload["progress"] = detail.Progress
	payload["workOrders"] = workOrders
	return payload
}

func workOrderJSON(wo store.WorkOrder) map[string]any {
	return map[string]any{
		"id":          wo.ID,
		"subtaskId":   wo.SubtaskID,
		"title":       wo.Title,
		"description": wo.Description,
		"status":      wo.Status,
		"assigneeId":  wo.AssigneeID,
		"startDate":   wo.StartDate,
		"endDate":     wo.EndDate,
		"order":       wo.Order,
		"createdAt":   wo.CreatedAt,
	}
}

func memberJSON(m store.ProjectMember) map[string]any {
	return map[string]any{
		"projectId": m.ProjectID,
		"userId":    m.UserID,
		"role":      m.Role,
		"name":      m.UserName,
		"email":     m.UserEmail,
	}
}

func invitationJSON(i store.Invitation) map[string]any {
	return map[string]any{
		"id":        i.ID,
		"projectId": i.ProjectID,
		"email":     i.Email,
		"role":      i.Role,
		"status":    i.Status,
		"invitedBy": i.InvitedBy,
		"createdAt": i.CreatedAt,
	}
}

func commentJSON(c store.Comment) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"entityType": c.EntityType,
		"entityId":   c.EntityID,
		"authorId":   c.AuthorID,
		"authorName": c.AuthorName,
		"body":       c.Body,
		"createdAt":  c.CreatedAt,
	}
}

func noteJSON(n store.Note) map[string]any {
	return map[string]any{
		"id":        n.ID,
		"projectId": n.ProjectID,
		"authorId":  n.AuthorID,
		"title":     n.Title,
		"body":      n.Body,
		"createdAt": n.CreatedAt,
		"updatedAt": n.UpdatedAt,
	}
}

func attachmentJSON(a store.Attachment) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"entityType":  a.EntityType,
		"entityId":    a.EntityID,
		"uploaderId":  a.UploaderID,
		"fileName":    a.FileName,
		"contentType": a.ContentType,
		"size":        a.Size,
		"createdAt":   a.CreatedAt,
	}
}

func notificationJSON(n store.Notification) map[string]any {
	return map[string]any{
		"id":        n.ID,
		"kind":      n.Kind,
		"refId":     n.RefID,
		"detail":    n.Detail,
		"readAt":    n.ReadAt,
		"createdAt": n.CreatedAt,
	}
}

func dailyReportJSON(d store.DailyReport) map[string]any {
	return map[string]any{
		"id":         d.ID,
		"projectId":  d.ProjectID,
		"authorId":   d.AuthorID,
		"authorName": d.AuthorName,
		"reportDate": d.ReportDate,
		"summary":    d.Summary,
		"blockers":   d.Blockers,
		"createdAt":  d.CreatedAt,
	}
}

func activityJSON(e store.ActivityEntry) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"projectId":  e.ProjectID,
		"actorId":    e.ActorID,
		"action":     e.Action,
		"entityType": e.EntityType,
		"entityId":   e.EntityID,
		"detail":     e.Detail,
		"createdAt":  e.CreatedAt,
	}
}

func templateJSON(t store.Template) map[string]any {
	return map[string]any{
		"id":              t.ID,
		"name":            t.Name,
		"description":     t.Description,
		"ownerId":         t.OwnerID,
		"sourceProjectId": t.SourceProjectID,
		"taskCount":       t.TaskCount,
		"subtaskCount":    t.SubtaskCount,
		"workOrderCount":  t.WorkOrderCount,
		"createdAt":       t.CreatedAt,
		"updatedAt":       t.UpdatedAt,
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMapped(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) || store.IsNotFound(err) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
