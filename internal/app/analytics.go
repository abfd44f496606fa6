package app

import (
	"context"
	"time"

	"tandem/api/internal/store"
)

const trendDays = 14

type TrendPoint struct {
	Day       string `json:"day"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

type ProjectRollup struct {
	ProjectID   string `json:"projectId,omitempty"`
	ProjectName string `json:"projectName"`
	TotalTasks  int    `json:"totalTasks"`
	DoneTasks   int    `json:"doneTasks"`
	Progress    int    `json:"progress"`
}

type AnalyticsView struct {
	TotalTasks     int             `json:"totalTasks"`
	StatusCounts   map[string]int  `json:"statusCounts"`
	PriorityCounts map[string]int  `json:"priorityCounts"`
	OverdueCount   int             `json:"overdueCount"`
	Trend          []TrendPoint    `json:"trend"`
	Projects       []ProjectRollup `json:"projects"`
}

// AnalyticsView aggregates the caller's accessible tasks into dashboard
// numbers. Task records carry no completion timestamp, so the trend's
// completed series buckets done tasks by creation date as a proxy.
func (s *Service) AnalyticsView(ctx context.Context, caller store.User) (AnalyticsView, error) {
	view := AnalyticsView{
		StatusCounts:   map[string]int{statusTodo: 0, statusInProgress: 0, statusDone: 0},
		PriorityCounts: map[string]int{priorityLow: 0, priorityMedium: 0, priorityHigh: 0},
		Trend:          []TrendPoint{},
		Projects:       []ProjectRollup{},
	}
	if caller.ID == "" {
		return view, nil
	}
	tasks, err := s.accessibleTasks(ctx, caller)
	if err != nil {
		return AnalyticsView{}, err
	}

	now := time.Now()
	view.TotalTasks = len(tasks)
	for _, task := range tasks {
		view.StatusCounts[task.Status]++
		view.PriorityCounts[task.Priority]++
		if task.Status != statusDone && task.EndDate != nil && task.EndDate.Before(now) {
			view.OverdueCount++
		}
	}

	view.Trend = taskTrend(tasks, now)

	byProject := make(map[string][]store.Task)
	ordered := make([]string, 0)
	for _, task := range tasks {
		key := deref(task.ProjectID)
		if _, seen := byProject[key]; !seen {
			ordered = append(ordered, key)
		}
		byProject[key] = append(byProject[key], task)
	}
	cache := s.newViewCache()
	for _, key := range ordered {
		group := byProject[key]
		done := 0
		for _, task := range group {
			if task.Status == statusDone {
				done++
			}
		}
		name := "No project"
		if key != "" {
			name = cache.projectName(ctx, &key)
		}
		view.Projects = append(view.Projects, ProjectRollup{
			ProjectID:   key,
			ProjectName: name,
			TotalTasks:  len(group),
			DoneTasks:   done,
			Progress:    projectProgress(group),
		})
	}
	return view, nil
}

func taskTrend(tasks []store.Task, now time.Time) []TrendPoint {
	points := make([]TrendPoint, trendDays)
	index := make(map[string]int, trendDays)
	for i := 0; i < trendDays; i++ {
		day := now.AddDate(0, 0, i-trendDays+1).Format("2006-01-02")
		points[i] = TrendPoint{Day: day}
		index[day] = i
	}
	for _, task := range tasks {
		day := task.CreatedAt.Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			continue
		}
		points[i].Created++
		if task.Status == statusDone {
			points[i].Completed++
		}
	}
	return points
}
