// Package templates implements the portable project-structure codec: a
// project's task/subtask/work-order tree serialized as an id-free JSON
// snapshot that can be stored, edited in place, and cloned into new projects.
package templates

import (
	"encoding/json"
	"strings"
)

// Structure is the wire format. It carries titles, descriptions, priorities
// and relative order only, never live entity ids.
type Structure struct {
	Tasks []TaskDef `json:"tasks"`
}

type TaskDef struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Subtasks    []SubtaskDef `json:"subtasks,omitempty"`
}

type SubtaskDef struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Order       int            `json:"order,omitempty"`
	WorkOrders  []WorkOrderDef `json:"workOrders,omitempty"`
}

type WorkOrderDef struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// Counts are the summary numbers stored alongside a structure. They are a
// cache: recomputed and overwritten on every structural edit, never
// incrementally maintained.
type Counts struct {
	Tasks      int
	Subtasks   int
	WorkOrders int
}

// Decode parses a stored structure string. A malformed string decodes to an
// empty structure rather than an error; stored structures are treated as
// untrusted (hand-edited or corrupted payloads must not fail reads).
func Decode(raw string) Structure {
	var structure Structure
	if err := json.Unmarshal([]byte(raw), &structure); err != nil {
		return Structure{Tasks: []TaskDef{}}
	}
	if structure.Tasks == nil {
		structure.Tasks = []TaskDef{}
	}
	return structure
}

// Encode serializes a structure for storage.
func Encode(structure Structure) (string, error) {
	if structure.Tasks == nil {
		structure.Tasks = []TaskDef{}
	}
	raw, err := json.Marshal(structure)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Count walks the structure and returns its summary counts.
func Count(structure Structure) Counts {
	counts := Counts{Tasks: len(structure.Tasks)}
	for _, task := range structure.Tasks {
		counts.Subtasks += len(task.Subtasks)
		for _, subtask := range task.Subtasks {
			counts.WorkOrders += len(subtask.WorkOrders)
		}
	}
	return counts
}

// Normalize prepares a directly-edited structure for saving: entries with
// blank titles are dropped and order fields are renumbered to array position.
// This is the only path that regenerates order values; callers editing a
// structure must not assume their prior order values survive a save.
func Normalize(structure Structure) Structure {
	tasks := make([]TaskDef, 0, len(structure.Tasks))
	for _, task := range structure.Tasks {
		if strings.TrimSpace(task.Title) == "" {
			continue
		}
		subtasks := make([]SubtaskDef, 0, len(task.Subtasks))
		for _, subtask := range task.Subtasks {
			if strings.TrimSpace(subtask.Title) == "" {
				continue
			}
			workOrders := make([]WorkOrderDef, 0, len(subtask.WorkOrders))
			for _, workOrder := range subtask.WorkOrders {
				if strings.TrimSpace(workOrder.Title) == "" {
					continue
				}
				workOrder.Order = len(workOrders)
				workOrders = append(workOrders, workOrder)
			}
			subtask.WorkOrders = workOrders
			subtask.Order = len(subtasks)
			subtasks = append(subtasks, subtask)
		}
		task.Subtasks = subtasks
		tasks = append(tasks, task)
	}
	return Structure{Tasks: tasks}
}
