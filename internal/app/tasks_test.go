package app

import (
	"context"
	"net/http"
	"testing"
)

func TestTaskDetailRecomputesProgress(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")
	task := seedTask(ms, owner, &project.ID, "Build", "in_progress")
	subtask := seedSubtask(ms, task.ID, "Backend", "in_progress", 0)
	seedWorkOrder(ms, subtask.ID, "Handler", "done", 0)
	done := seedWorkOrder(ms, subtask.ID, "Store", "todo", 1)

	ctx := context.Background()
	detail, err := svc.GetTaskDetail(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("GetTaskDetail: %v", err)
	}
	if len(detail.Subtasks) != 1 {
		t.Fatalf("expected one subtask, got %d", len(detail.Subtasks))
	}
	// One of two work orders done: the subtask reads 50. The task counts
	// done subtasks only, and none are done yet.
	if detail.Subtasks[0].Progress != 50 {
		t.Fatalf("subtask progress = %d, want 50", detail.Subtasks[0].Progress)
	}
	if detail.Progress != 0 {
		t.Fatalf("task progress = %d, want 0", detail.Progress)
	}

	// Finish the second work order and read again: no caching, the numbers
	// move immediately.
	done.Status = "done"
	ms.workOrders[done.ID] = done
	subtask.Status = "done"
	ms.subtasks[subtask.ID] = subtask

	detail, err = svc.GetTaskDetail(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("GetTaskDetail: %v", err)
	}
	if detail.Subtasks[0].Progress != 100 {
		t.Fatalf("subtask progress = %d, want 100", detail.Subtasks[0].Progress)
	}
	if detail.Progress != 100 {
		t.Fatalf("task progress = %d, want 100 (1/1 subtasks done)", detail.Progress)
	}
}

func TestReorderSubtasksValidatesPermutation(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")
	task := seedTask(ms, owner, &project.ID, "Build", "todo")
	a := seedSubtask(ms, task.ID, "A", "todo", 0)
	b := seedSubtask(ms, task.ID, "B", "todo", 1)
	c := seedSubtask(ms, task.ID, "C", "todo", 2)

	ctx := context.Background()
	// Missing a sibling.
	err := svc.ReorderSubtasks(ctx, owner, task.ID, []string{a.ID, b.ID})
	assertDomainStatus(t, err, http.StatusUnprocessableEntity)
	// Duplicate entry.
	err = svc.ReorderSubtasks(ctx, owner, task.ID, []string{a.ID, a.ID, b.ID})
	assertDomainStatus(t, err, http.StatusUnprocessableEntity)
	// Foreign id.
	err = svc.ReorderSubtasks(ctx, owner, task.ID, []string{a.ID, b.ID, "sub_nope"})
	assertDomainStatus(t, err, http.StatusUnprocessableEntity)

	if err := svc.ReorderSubtasks(ctx, owner, task.ID, []string{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("valid reorder: %v", err)
	}
	subtasks, _ := ms.ListSubtasksByTask(ctx, task.ID)
	got := []string{subtasks[0].ID, subtasks[1].ID, subtasks[2].ID}
	want := []string{c.ID, a.ID, b.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after reorder = %v, want %v", got, want)
		}
	}
}

func TestUpdateTaskMoveRequiresRightsOnTarget(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	other := seedUser(ms, "Oscar", "oscar@example.com")
	project := seedProject(ms, owner, "Mine")
	foreign := seedProject(ms, other, "Theirs")
	task := seedTask(ms, owner, &project.ID, "Build", "todo")

	ctx := context.Background()
	_, err := svc.UpdateTask(ctx, owner, task.ID, TaskInput{Title: "Build", ProjectID: &foreign.ID})
	assertDomainStatus(t, err, http.StatusNotFound)

	// Moving into a project where the caller has update rights works.
	second := seedProject(ms, owner, "Also mine")
	moved, err := svc.UpdateTask(ctx, owner, task.ID, TaskInput{Title: "Build", ProjectID: &second.ID})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ProjectID == nil || *moved.ProjectID != second.ID {
		t.Fatalf("task not moved: %+v", moved)
	}
}

func TestSetTaskStatusValidates(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	task := seedTask(ms, owner, nil, "Errand", "todo")

	ctx := context.Background()
	_, err := svc.SetTaskStatus(ctx, owner, task.ID, "finished")
	assertDomainStatus(t, err, http.StatusUnprocessableEntity)
	if _, err := svc.SetTaskStatus(ctx, owner, task.ID, "done"); err != nil {
		t.Fatalf("valid status: %v", err)
	}
}

func TestAssignmentNotifies(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	assignee := seedUser(ms, "Ann", "ann@example.com")
	project := seedProject(ms, owner, "Launch")
	ms.members[project.ID][assignee.ID] = "editor"

	ctx := context.Background()
	task, err := svc.CreateTask(ctx, owner, TaskInput{Title: "Handoff", ProjectID: &project.ID, AssigneeID: &assignee.ID})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	notes, _ := ms.ListNotificationsForUser(ctx, assignee.ID)
	if len(notes) != 1 || notes[0].Kind != "assigned" || notes[0].RefID != task.ID {
		t.Fatalf("unexpected notifications: %+v", notes)
	}
}
