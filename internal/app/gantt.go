package app

import (
	"context"
	"time"

	"tandem/api/internal/store"
)

// GanttRow is one bar in the depth-annotated outline: projects at depth 0,
// tasks at 1, subtasks at 2. Progress is recomputed from the live tree.
type GanttRow struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parentId,omitempty"`
	Depth     int        `json:"depth"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Color     string     `json:"color,omitempty"`
}

// GanttView renders the caller's active projects as a flattened outline. The
// task rows come from the shared access scope, grouped under their projects;
// orphan tasks trail the projects at task depth with no parent.
func (s *Service) GanttView(ctx context.Context, caller store.User) ([]GanttRow, error) {
	if caller.ID == "" {
		return []GanttRow{}, nil
	}
	tasks, err := s.accessibleTasks(ctx, caller)
	if err != nil {
		return nil, err
	}

	byProject := make(map[string][]store.Task)
	orphans := make([]store.Task, 0)
	for _, task := range tasks {
		if task.ProjectID == nil {
			orphans = append(orphans, task)
			continue
		}
		byProject[*task.ProjectID] = append(byProject[*task.ProjectID], task)
	}

	projects, err := s.store.ListProjectsForUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	rows := make([]GanttRow, 0, len(tasks)+len(projects))
	for _, project := range projects {
		if project.Status == projectArchived {
			continue
		}
		children := byProject[project.ID]
		rows = append(rows, GanttRow{
			ID:        project.ID,
			Depth:     0,
			Kind:      entityProject,
			Title:     project.Name,
			Status:    project.Status,
			Progress:  projectProgress(children),
			StartDate: project.StartDate,
			EndDate:   project.EndDate,
			Color:     project.Color,
		})
		for _, task := range children {
			taskRows, err := s.ganttTaskRows(ctx, task, project.ID)
			if err != nil {
				return nil, err
			}
			rows = append(rows, taskRows...)
		}
		delete(byProject, project.ID)
	}

	for _, task := range orphans {
		taskRows, err := s.ganttTaskRows(ctx, task, "")
		if err != nil {
			return nil, err
		}
		rows = append(rows, taskRows...)
	}
	return rows, nil
}

func (s *Service) ganttTaskRows(ctx context.Context, task store.Task, parentID string) ([]GanttRow, error) {
	subtasks, err := s.store.ListSubtasksByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	rows := make([]GanttRow, 0, len(subtasks)+1)
	rows = append(rows, GanttRow{
		ID:        task.ID,
		ParentID:  parentID,
		Depth:     1,
		Kind:      entityTask,
		Title:     task.Title,
		Status:    task.Status,
		Progress:  taskProgress(task, subtasks),
		StartDate: task.StartDate,
		EndDate:   task.EndDate,
		Color:     task.Color,
	})
	for _, subtask := range subtasks {
		workOrders, err := s.store.ListWorkOrdersBySubtask(ctx, subtask.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, GanttRow{
			ID:        subtask.ID,
			ParentID:  task.ID,
			Depth:     2,
			Kind:      entitySubtask,
			Title:     subtask.Title,
			Status:    subtask.Status,
			Progress:  subtaskProgress(subtask, workOrders),
			StartDate: subtask.StartDate,
			EndDate:   subtask.EndDate,
		})
	}
	return rows, nil
}
