package app

import (
	"context"
	"time"

	"tandem/api/internal/store"
)

// CalendarItem is an entity missing a start or end date, listed so the
// client can prompt for scheduling.
type CalendarItem struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	ProjectName string     `json:"projectName,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// CalendarRange is a fully scheduled entity ready to draw.
type CalendarRange struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Color       string    `json:"color,omitempty"`
	ProjectName string    `json:"projectName,omitempty"`
}

type CalendarView struct {
	Unscheduled []CalendarItem  `json:"unscheduled"`
	Scheduled   []CalendarRange `json:"scheduled"`
}

// CalendarView splits the caller's projects and accessible task tree into
// scheduled ranges and unscheduled leftovers. Done items never appear in the
// unscheduled list; archived projects are skipped entirely.
func (s *Service) CalendarView(ctx context.Context, caller store.User) (CalendarView, error) {
	view := CalendarView{Unscheduled: []CalendarItem{}, Scheduled: []CalendarRange{}}
	if caller.ID == "" {
		return view, nil
	}

	projects, err := s.store.ListProjectsForUser(ctx, caller.ID)
	if err != nil {
		return CalendarView{}, err
	}
	for _, project := range projects {
		if project.Status == projectArchived {
			continue
		}
		if project.StartDate != nil && project.EndDate != nil {
			view.Scheduled = append(view.Scheduled, CalendarRange{
				ID: project.ID, Kind: entityProject, Title: project.Name, Status: project.Status,
				Start: *project.StartDate, End: *project.EndDate, Color: project.Color,
			})
		} else {
			view.Unscheduled = append(view.Unscheduled, CalendarItem{
				ID: project.ID, Kind: entityProject, Title: project.Name, Status: project.Status,
				StartDate: project.StartDate, EndDate: project.EndDate,
			})
		}
	}

	tasks, err := s.accessibleTasks(ctx, caller)
	if err != nil {
		return CalendarView{}, err
	}
	cache := s.newViewCache()
	for _, task := range tasks {
		// An archived project takes its whole subtree off the calendar.
		if task.ProjectID != nil {
			if project := cache.project(ctx, *task.ProjectID); project != nil && project.Status == projectArchived {
				continue
			}
		}
		projectName := cache.projectName(ctx, task.ProjectID)
		s.appendCalendarEntry(&view, entityTask, task.ID, task.Title, task.Status, task.StartDate, task.EndDate, task.Color, projectName)

		subtasks, err := s.store.ListSubtasksByTask(ctx, task.ID)
		if err != nil {
			return CalendarView{}, err
		}
		for _, subtask := range subtasks {
			s.appendCalendarEntry(&view, entitySubtask, subtask.ID, subtask.Title, subtask.Status, subtask.StartDate, subtask.EndDate, "", projectName)

			workOrders, err := s.store.ListWorkOrdersBySubtask(ctx, subtask.ID)
			if err != nil {
				return CalendarView{}, err
			}
			for _, workOrder := range workOrders {
				s.appendCalendarEntry(&view, entityWorkOrder, workOrder.ID, workOrder.Title, workOrder.Status, workOrder.StartDate, workOrder.EndDate, "", projectName)
			}
		}
	}
	return view, nil
}

func (s *Service) appendCalendarEntry(view *CalendarView, kind, id, title, status string, start, end *time.Time, color, projectName string) {
	if start != nil && end != nil {
		view.Scheduled = append(view.Scheduled, CalendarRange{
			ID: id, Kind: kind, Title: title, Status: status,
			Start: *start, End: *end, Color: color, ProjectName: projectName,
		})
		return
	}
	if status == statusDone {
		return
	}
	view.Unscheduled = append(view.Unscheduled, CalendarItem{
		ID: id, Kind: kind, Title: title, Status: status,
		ProjectName: projectName, StartDate: start, EndDate: end,
	})
}
