package app

import (
	"context"
	"time"

	"tandem/api/internal/store"
)

// BoardItem is one card on the board: every task, subtask and work order in
// the caller's scope flattened into a single list, each row carrying enough
// breadcrumb context to render without further lookups. Board columns key
// off status alone, so rows carry no progress value.
type BoardItem struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority,omitempty"`
	ParentID        string     `json:"parentId,omitempty"`
	ParentName      string     `json:"parentName,omitempty"`
	GrandparentName string     `json:"grandparentName,omitempty"`
	ProjectID       string     `json:"projectId,omitempty"`
	ProjectName     string     `json:"projectName,omitempty"`
	AssigneeID      string     `json:"assigneeId,omitempty"`
	AssigneeName    string     `json:"assigneeName,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	Color           string     `json:"color,omitempty"`
}

// BoardView flattens the caller's accessible tree into board cards. An
// unauthenticated read returns an empty board, not an error.
func (s *Service) BoardView(ctx context.Context, caller store.User) ([]BoardItem, error) {
	tasks, err := s.accessibleTasks(ctx, caller)
	if err != nil {
		return nil, err
	}
	cache := s.newViewCache()

	items := make([]BoardItem, 0, len(tasks))
	for _, task := range tasks {
		projectName := cache.projectName(ctx, task.ProjectID)
		subtasks, err := s.store.ListSubtasksByTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}

		items = append(items, BoardItem{
			ID:           task.ID,
			Kind:         entityTask,
			Title:        task.Title,
			Status:       task.Status,
			Priority:     task.Priority,
			ParentID:     deref(task.ProjectID),
			ParentName:   projectName,
			ProjectID:    deref(task.ProjectID),
			ProjectName:  projectName,
			AssigneeID:   deref(task.AssigneeID),
			AssigneeName: cache.userName(ctx, task.AssigneeID),
			StartDate:    task.StartDate,
			EndDate:      task.EndDate,
			Color:        task.Color,
		})

		for _, subtask := range subtasks {
			workOrders, err := s.store.ListWorkOrdersBySubtask(ctx, subtask.ID)
			if err != nil {
				return nil, err
			}
			items = append(items, BoardItem{
				ID:              subtask.ID,
				Kind:            entitySubtask,
				Title:           subtask.Title,
				Status:          subtask.Status,
				ParentID:        task.ID,
				ParentName:      task.Title,
				GrandparentName: projectName,
				ProjectID:       deref(task.ProjectID),
				ProjectName:     projectName,
				AssigneeID:      deref(subtask.AssigneeID),
				AssigneeName:    cache.userName(ctx, subtask.AssigneeID),
				StartDate:       subtask.StartDate,
				EndDate:         subtask.EndDate,
			})

			for _, workOrder := range workOrders {
				items = append(items, BoardItem{
					ID:              workOrder.ID,
					Kind:            entityWorkOrder,
					Title:           workOrder.Title,
					Status:          workOrder.Status,
					ParentID:        subtask.ID,
					ParentName:      subtask.Title,
					GrandparentName: task.Title,
					ProjectID:       deref(task.ProjectID),
					ProjectName:     projectName,
					AssigneeID:      deref(workOrder.AssigneeID),
					AssigneeName:    cache.userName(ctx, workOrder.AssigneeID),
					StartDate:       workOrder.StartDate,
					EndDate:         workOrder.EndDate,
				})
			}
		}
	}
	return items, nil
}
