package app

import (
	"testing"

	"tandem/api/internal/store"
)

func workOrdersWithStatuses(statuses ...string) []store.WorkOrder {
	items := make([]store.WorkOrder, len(statuses))
	for i, status := range statuses {
		items[i] = store.WorkOrder{ID: "wrk_" + string(rune('a'+i)), Status: status}
	}
	return items
}

func subtasksWithStatuses(statuses ...string) []store.Subtask {
	items := make([]store.Subtask, len(statuses))
	for i, status := range statuses {
		items[i] = store.Subtask{ID: "sub_" + string(rune('a'+i)), Status: status}
	}
	return items
}

func tasksWithStatuses(statuses ...string) []store.Task {
	items := make([]store.Task, len(statuses))
	for i, status := range statuses {
		items[i] = store.Task{ID: "tsk_" + string(rune('a'+i)), Status: status}
	}
	return items
}

func TestSubtaskProgress(t *testing.T) {
	cases := []struct {
		name       string
		status     string
		workOrders []store.WorkOrder
		want       int
	}{
		{"done wins over children", statusDone, workOrdersWithStatuses(statusTodo, statusTodo), 100},
		{"todo without children", statusTodo, nil, 0},
		{"in progress without children", statusInProgress, nil, 50},
		{"one of three done", statusInProgress, workOrdersWithStatuses(statusDone, statusTodo, statusTodo), 33},
		{"two of three done", statusTodo, workOrdersWithStatuses(statusDone, statusDone, statusTodo), 67},
		{"half rounds up", statusTodo, workOrdersWithStatuses(statusDone, statusTodo, statusTodo, statusTodo, statusTodo, statusTodo, statusTodo, statusTodo), 13},
		{"children override own status", statusInProgress, workOrdersWithStatuses(statusTodo, statusTodo), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := subtaskProgress(store.Subtask{Status: tc.status}, tc.workOrders)
			if got != tc.want {
				t.Fatalf("subtaskProgress = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTaskProgress(t *testing.T) {
	cases := []struct {
		name     string
		status   string
		subtasks []store.Subtask
		want     int
	}{
		{"done wins even with open subtasks", statusDone, subtasksWithStatuses(statusTodo, statusTodo), 100},
		{"todo leaf", statusTodo, nil, 0},
		{"in progress leaf", statusInProgress, nil, 50},
		{"counts done subtasks only", statusInProgress, subtasksWithStatuses(statusDone, statusInProgress, statusTodo), 33},
		{"all subtasks done but task open", statusInProgress, subtasksWithStatuses(statusDone, statusDone), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := taskProgress(store.Task{Status: tc.status}, tc.subtasks)
			if got != tc.want {
				t.Fatalf("taskProgress = %d, want %d", got, tc.want)
			}
		})
	}
}

// Task progress counts a subtask as either done or not; a subtask sitting at
// 99% through its work orders contributes nothing until its status flips.
func TestTaskProgressIgnoresPartialSubtasks(t *testing.T) {
	subtasks := subtasksWithStatuses(statusInProgress, statusInProgress)
	if got := taskProgress(store.Task{Status: statusInProgress}, subtasks); got != 0 {
		t.Fatalf("taskProgress = %d, want 0", got)
	}
}

func TestProjectProgress(t *testing.T) {
	cases := []struct {
		name  string
		tasks []store.Task
		want  int
	}{
		{"no tasks", nil, 0},
		{"none done", tasksWithStatuses(statusTodo, statusInProgress), 0},
		{"one of three", tasksWithStatuses(statusDone, statusTodo, statusTodo), 33},
		{"all done", tasksWithStatuses(statusDone, statusDone), 100},
		{"half rounds up", tasksWithStatuses(statusDone, statusTodo), 50},
		{"five of eight", tasksWithStatuses(statusDone, statusDone, statusDone, statusDone, statusDone, statusTodo, statusTodo, statusTodo), 63},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := projectProgress(tc.tasks); got != tc.want {
				t.Fatalf("projectProgress = %d, want %d", got, tc.want)
			}
		})
	}
}

// The flat project formula ignores everything below the task level: a
// project whose tasks are each half-way stays at 0 until a task is done.
func TestProjectProgressIsFlat(t *testing.T) {
	tasks := tasksWithStatuses(statusInProgress, statusInProgress, statusInProgress)
	if got := projectProgress(tasks); got != 0 {
		t.Fatalf("projectProgress = %d, want 0", got)
	}
}
