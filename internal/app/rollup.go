package app

import (
	"math"

	"tandem/api/internal/store"
)

// Progress roll-up. Each level has its own formula and nothing is cached:
// callers recompute from the live tree on every read.

func ratioPercent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// leafProgress is the childless formula shared by every level: status alone
// decides, with in_progress counting half.
func leafProgress(status string) int {
	switch status {
	case statusDone:
		return 100
	case statusInProgress:
		return 50
	default:
		return 0
	}
}

// subtaskProgress: a done subtask is 100 outright. Otherwise, with work
// orders present, it is the done-work-order ratio; with none, the subtask's
// own status stands in (in_progress counts half).
func subtaskProgress(subtask store.Subtask, workOrders []store.WorkOrder) int {
	if subtask.Status == statusDone {
		return 100
	}
	if len(workOrders) > 0 {
		done := 0
		for _, workOrder := range workOrders {
			if workOrder.Status == statusDone {
				done++
			}
		}
		return ratioPercent(done, len(workOrders))
	}
	return leafProgress(subtask.Status)
}

// taskProgress mirrors the subtask formula one level up, over done subtasks.
// Note it counts done subtasks, not their partial progress.
func taskProgress(task store.Task, subtasks []store.Subtask) int {
	if task.Status == statusDone {
		return 100
	}
	if len(subtasks) > 0 {
		done := 0
		for _, subtask := range subtasks {
			if subtask.Status == statusDone {
				done++
			}
		}
		return ratioPercent(done, len(subtasks))
	}
	return leafProgress(task.Status)
}

// projectProgress is deliberately flat: the ratio of done direct tasks,
// ignoring subtask and work-order state entirely. A project with no tasks
// is 0, never a division error.
func projectProgress(tasks []store.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, task := range tasks {
		if task.Status == statusDone {
			done++
		}
	}
	return ratioPercent(done, len(tasks))
}
