package app

import (
	"context"
	"testing"
	"time"
)

// A task the caller owns inside a project they are also a member of must
// appear exactly once in the shared scope.
func TestAccessibleScopeDeduplicates(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	editor := seedUser(ms, "Ed", "ed@example.com")
	project := seedProject(ms, owner, "Launch")
	ms.members[project.ID][editor.ID] = "editor"

	// Owned by the editor AND inside a project shared with the editor.
	seedTask(ms, editor, &project.ID, "Double counted?", "todo")
	// Owned by the owner, visible to the editor via membership only.
	seedTask(ms, owner, &project.ID, "Owner's task", "todo")
	// Private orphan of the editor.
	seedTask(ms, editor, nil, "Personal errand", "todo")

	tasks, err := svc.accessibleTasks(context.Background(), editor)
	if err != nil {
		t.Fatalf("accessibleTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3: %+v", len(tasks), tasks)
	}
	seen := map[string]int{}
	for _, task := range tasks {
		seen[task.ID]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("task %s appears %d times", id, count)
		}
	}
}

func TestBoardViewBreadcrumbs(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")
	task := seedTask(ms, owner, &project.ID, "Build", "in_progress")
	subtask := seedSubtask(ms, task.ID, "Backend", "todo", 0)
	workOrder := seedWorkOrder(ms, subtask.ID, "Write handler", "done", 0)

	items, err := svc.BoardView(context.Background(), owner)
	if err != nil {
		t.Fatalf("BoardView: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d board items, want 3", len(items))
	}

	byID := map[string]BoardItem{}
	for _, item := range items {
		byID[item.ID] = item
	}
	taskItem := byID[task.ID]
	if taskItem.Kind != "task" || taskItem.ParentID != project.ID || taskItem.ProjectName != "Launch" {
		t.Fatalf("task item breadcrumbs wrong: %+v", taskItem)
	}
	subtaskItem := byID[subtask.ID]
	if subtaskItem.ParentID != task.ID || subtaskItem.ParentName != "Build" || subtaskItem.ProjectName != "Launch" {
		t.Fatalf("subtask item breadcrumbs wrong: %+v", subtaskItem)
	}
	if subtaskItem.GrandparentName != "Launch" {
		t.Fatalf("subtask grandparent = %q, want Launch", subtaskItem.GrandparentName)
	}
	// Board columns key off status, the card carries it verbatim. Work order
	// breadcrumbs climb subtask then task.
	workOrderItem := byID[workOrder.ID]
	if workOrderItem.Kind != "work_order" || workOrderItem.Status != "done" || workOrderItem.ParentName != "Backend" {
		t.Fatalf("work order item wrong: %+v", workOrderItem)
	}
	if workOrderItem.GrandparentName != "Build" {
		t.Fatalf("work order grandparent = %q, want Build", workOrderItem.GrandparentName)
	}
}

func TestGanttViewDepths(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")
	task := seedTask(ms, owner, &project.ID, "Build", "todo")
	subtask := seedSubtask(ms, task.ID, "Backend", "todo", 0)
	orphan := seedTask(ms, owner, nil, "Errand", "todo")

	archived := seedProject(ms, owner, "Old")
	archived.Status = "archived"
	ms.projects[archived.ID] = archived

	rows, err := svc.GanttView(context.Background(), owner)
	if err != nil {
		t.Fatalf("GanttView: %v", err)
	}

	depths := map[string]int{}
	parents := map[string]string{}
	for _, row := range rows {
		depths[row.ID] = row.Depth
		parents[row.ID] = row.ParentID
		if row.ID == archived.ID {
			t.Fatal("archived project should not appear")
		}
	}
	if depths[project.ID] != 0 || depths[task.ID] != 1 || depths[subtask.ID] != 2 {
		t.Fatalf("unexpected depths: %v", depths)
	}
	if parents[task.ID] != project.ID || parents[subtask.ID] != task.ID {
		t.Fatalf("unexpected parents: %v", parents)
	}
	if depths[orphan.ID] != 1 || parents[orphan.ID] != "" {
		t.Fatalf("orphan should trail at task depth with no parent, got depth %d parent %q", depths[orphan.ID], parents[orphan.ID])
	}
}

func TestCalendarViewSplitsScheduled(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")

	start := time.Now()
	end := start.Add(48 * time.Hour)
	scheduled := seedTask(ms, owner, &project.ID, "Scheduled", "todo")
	scheduled.StartDate = &start
	scheduled.EndDate = &end
	ms.tasks[scheduled.ID] = scheduled

	unscheduled := seedTask(ms, owner, &project.ID, "Someday", "todo")
	doneUnscheduled := seedTask(ms, owner, &project.ID, "Finished", "done")

	view, err := svc.CalendarView(context.Background(), owner)
	if err != nil {
		t.Fatalf("CalendarView: %v", err)
	}

	scheduledIDs := map[string]bool{}
	for _, item := range view.Scheduled {
		scheduledIDs[item.ID] = true
	}
	unscheduledIDs := map[string]bool{}
	for _, item := range view.Unscheduled {
		unscheduledIDs[item.ID] = true
	}

	if !scheduledIDs[scheduled.ID] {
		t.Fatal("dated task should be in the scheduled list")
	}
	if !unscheduledIDs[unscheduled.ID] {
		t.Fatal("undated open task should be in the unscheduled list")
	}
	if unscheduledIDs[doneUnscheduled.ID] {
		t.Fatal("done undated task should be hidden")
	}
	// The project has no dates, so it lands in unscheduled.
	if !unscheduledIDs[project.ID] {
		t.Fatal("undated project should be in the unscheduled list")
	}
}

func TestCalendarViewSkipsArchivedProjects(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	archived := seedProject(ms, owner, "Old")
	archived.Status = "archived"
	ms.projects[archived.ID] = archived

	start := time.Now()
	end := start.Add(24 * time.Hour)
	dated := seedTask(ms, owner, &archived.ID, "Dated", "todo")
	dated.StartDate = &start
	dated.EndDate = &end
	ms.tasks[dated.ID] = dated
	undated := seedTask(ms, owner, &archived.ID, "Undated", "todo")

	view, err := svc.CalendarView(context.Background(), owner)
	if err != nil {
		t.Fatalf("CalendarView: %v", err)
	}
	for _, item := range view.Scheduled {
		if item.ID == archived.ID || item.ID == dated.ID {
			t.Fatalf("archived project entity %s should not be scheduled", item.ID)
		}
	}
	for _, item := range view.Unscheduled {
		if item.ID == archived.ID || item.ID == undated.ID {
			t.Fatalf("archived project entity %s should not be unscheduled", item.ID)
		}
	}
}

func TestAnalyticsViewCounts(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")

	seedTask(ms, owner, &project.ID, "A", "done")
	seedTask(ms, owner, &project.ID, "B", "todo")
	overdue := seedTask(ms, owner, &project.ID, "C", "in_progress")
	past := time.Now().Add(-24 * time.Hour)
	overdue.EndDate = &past
	ms.tasks[overdue.ID] = overdue
	seedTask(ms, owner, nil, "Orphan", "todo")

	view, err := svc.AnalyticsView(context.Background(), owner)
	if err != nil {
		t.Fatalf("AnalyticsView: %v", err)
	}
	if view.TotalTasks != 4 {
		t.Fatalf("TotalTasks = %d, want 4", view.TotalTasks)
	}
	if view.StatusCounts["todo"] != 2 || view.StatusCounts["done"] != 1 || view.StatusCounts["in_progress"] != 1 {
		t.Fatalf("unexpected status counts: %v", view.StatusCounts)
	}
	if view.OverdueCount != 1 {
		t.Fatalf("OverdueCount = %d, want 1", view.OverdueCount)
	}

	var launch, orphans *ProjectRollup
	for i := range view.Projects {
		switch view.Projects[i].ProjectID {
		case project.ID:
			launch = &view.Projects[i]
		case "":
			orphans = &view.Projects[i]
		}
	}
	if launch == nil || launch.TotalTasks != 3 || launch.DoneTasks != 1 || launch.Progress != 33 {
		t.Fatalf("unexpected project rollup: %+v", launch)
	}
	if orphans == nil || orphans.ProjectName != "No project" || orphans.TotalTasks != 1 {
		t.Fatalf("unexpected orphan rollup: %+v", orphans)
	}

	// Tasks created today land in the last trend bucket.
	if len(view.Trend) == 0 {
		t.Fatal("expected trend points")
	}
	last := view.Trend[len(view.Trend)-1]
	if last.Created != 4 || last.Completed != 1 {
		t.Fatalf("trend tail = %+v, want 4 created 1 completed", last)
	}
}
