package app

import (
	"context"
	"time"

	"tandem/api/internal/export"
	"tandem/api/internal/rbac"
	"tandem/api/internal/store"
)

// ExportProjectPDF assembles a full project status report and renders it to
// PDF. Any member can export; the report reflects the live tree at call time.
func (s *Service) ExportProjectPDF(ctx context.Context, caller store.User, projectID string) (*export.Result, error) {
	if s.export == nil {
		return nil, errValidation("PDF export is not configured")
	}
	project, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cache := s.newViewCache()
	taskRows := make([]export.TaskRow, 0, len(tasks))
	for _, task := range tasks {
		subtasks, err := s.store.ListSubtasksByTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		row := export.TaskRow{
			Title:    task.Title,
			Status:   task.Status,
			Priority: task.Priority,
			Progress: taskProgress(task, subtasks),
			Assignee: cache.userName(ctx, task.AssigneeID),
		}
		if task.EndDate != nil {
			row.Due = task.EndDate.Format("Jan 2, 2006")
		}
		for _, subtask := range subtasks {
			workOrders, err := s.store.ListWorkOrdersBySubtask(ctx, subtask.ID)
			if err != nil {
				return nil, err
			}
			row.Subtasks = append(row.Subtasks, export.SubtaskRow{
				Title:    subtask.Title,
				Status:   subtask.Status,
				Progress: subtaskProgress(subtask, workOrders),
			})
		}
		taskRows = append(taskRows, row)
	}

	members, err := s.store.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	memberRows := make([]export.MemberRow, 0, len(members))
	for _, member := range members {
		memberRows = append(memberRows, export.MemberRow{Name: member.UserName, Role: member.Role})
	}

	reports, err := s.store.ListDailyReports(ctx, projectID)
	if err != nil {
		return nil, err
	}
	reportRows := make([]export.DailyReportRow, 0, len(reports))
	for _, report := range reports {
		reportRows = append(reportRows, export.DailyReportRow{
			Date:     report.ReportDate.Format("Jan 2, 2006"),
			Author:   report.AuthorName,
			Summary:  report.Summary,
			Blockers: report.Blockers,
		})
	}

	data := export.ReportData{
		ProjectName: project.Name,
		Description: project.Description,
		Status:      project.Status,
		Color:       project.Color,
		Progress:    projectProgress(tasks),
		GeneratedAt: time.Now(),
		Members:     memberRows,
		Tasks:       taskRows,
		Reports:     reportRows,
	}
	return s.export.ProjectReport(data)
}
