package app

import (
	"context"
	"strings"
	"time"

	"tandem/api/internal/rbac"
	"tandem/api/internal/store"
	"tandem/api/internal/util"
)

type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Color       string     `json:"color"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	ProjectID   *string    `json:"projectId"`
	AssigneeID  *string    `json:"assigneeId"`
}

type SubtaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssigneeID  *string    `json:"assigneeId"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// requireTaskAction loads a task and gates the caller's action on it. Task
// ownership always passes, whatever the action; otherwise the membership role
// on the containing project decides. Orphan tasks are reachable only by their
// owner. This is where delete stays stricter than update: the owner role does
// not carry ActionDeleteTasks, so a project owner cannot delete another
// member's task even though they can edit it.
func (s *Service) requireTaskAction(ctx context.Context, caller store.User, taskID string, action rbac.Action) (store.Task, error) {
	if caller.ID == "" {
		return store.Task{}, errUnauthenticated()
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Task{}, errNotFound("Task not found")
		}
		return store.Task{}, err
	}
	if task.OwnerID == caller.ID {
		return task, nil
	}
	if task.ProjectID == nil {
		return store.Task{}, errNotFound("Task not found")
	}
	project, err := s.store.GetProject(ctx, *task.ProjectID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Task{}, errNotFound("Task not found")
		}
		return store.Task{}, err
	}
	role, err := s.projectRole(ctx, project, caller.ID)
	if err != nil {
		return store.Task{}, err
	}
	if role == "" {
		return store.Task{}, errNotFound("Task not found")
	}
	if !rbac.Can(role, action) {
		return store.Task{}, errForbidden("Insufficient project role")
	}
	return task, nil
}

func (s *Service) CreateTask(ctx context.Context, caller store.User, input TaskInput) (store.Task, error) {
	if caller.ID == "" {
		return store.Task{}, errUnauthenticated()
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.Task{}, errValidation("Task title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = priorityMedium
	}
	if !validPriority(priority) {
		return store.Task{}, errValidation("Priority must be low, medium or high")
	}
	if input.ProjectID != nil {
		if _, _, err := s.requireProjectAction(ctx, caller, *input.ProjectID, rbac.ActionUpdateTasks); err != nil {
			return store.Task{}, err
		}
	}

	task := store.Task{
		ID:          util.NewID(util.IDTask),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      statusTodo,
		Priority:    priority,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Color:       input.Color,
		ProjectID:   input.ProjectID,
		AssigneeID:  input.AssigneeID,
		OwnerID:     caller.ID,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return store.Task{}, err
	}
	s.indexTask(task)
	s.logActivity(ctx, task.ProjectID, caller.ID, "created", entityTask, task.ID, task.Title)
	if task.AssigneeID != nil && *task.AssigneeID != caller.ID {
		s.notify(ctx, *task.AssigneeID, notifyAssigned, task.ID, task.Title)
	}
	return task, nil
}

// TaskDetail is a task with its children and progress, recomputed from the
// live tree on every read.
type TaskDetail struct {
	Task     store.Task
	Progress int
	Subtasks []SubtaskDetail
}

type SubtaskDetail struct {
	Subtask    store.Subtask
	Progress   int
	WorkOrders []store.WorkOrder
}

func (s *Service) GetTaskDetail(ctx context.Context, caller store.User, taskID string) (TaskDetail, error) {
	task, err := s.requireTaskAction(ctx, caller, taskID, rbac.ActionView)
	if err != nil {
		return TaskDetail{}, err
	}
	return s.loadTaskDetail(ctx, task)
}

func (s *Service) loadTaskDetail(ctx context.Context, task store.Task) (TaskDetail, error) {
	subtasks, err := s.store.ListSubtasksByTask(ctx, task.ID)
	if err != nil {
		return TaskDetail{}, err
	}
	detail := TaskDetail{Task: task, Subtasks: make([]SubtaskDetail, 0, len(subtasks))}
	for _, subtask := range subtasks {
		workOrders, err := s.store.ListWorkOrdersBySubtask(ctx, subtask.ID)
		if err != nil {
			return TaskDetail{}, err
		}
		detail.Subtasks = append(detail.Subtasks, SubtaskDetail{
			Subtask:    subtask,
			Progress:   subtaskProgress(subtask, workOrders),
			WorkOrders: workOrders,
		})
	}
	detail.Progress = taskProgress(task, subtasks)
	return detail, nil
}

// ListProjectTasks returns a project's tasks with per-task progress.
func (s *Service) ListProjectTasks(ctx context.Context, caller store.User, projectID string) ([]TaskDetail, error) {
	if _, _, err := s.requireProjectAction(ctx, caller, projectID, rbac.ActionView); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	details := make([]TaskDetail, 0, len(tasks))
	for _, task := range tasks {
		detail, err := s.loadTaskDetail(ctx, task)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) UpdateTask(ctx context.Context, caller store.User, taskID string, input TaskInput) (store.Task, error) {
	task, err := s.requireTaskAction(ctx, caller, taskID, rbac.ActionUpdateTasks)
	if err != nil {
		return store.Task{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.Task{}, errValidation("Task title is required")
	}
	if input.Priority != "" && !validPriority(input.Priority) {
		return store.Task{}, errValidation("Priority must be low, medium or high")
	}
	// Moving a task into a different project needs edit rights there too.
	if input.ProjectID != nil && (task.ProjectID == nil || *task.ProjectID != *input.ProjectID) {
		if _, _, err := s.requireProjectAction(ctx, caller, *input.ProjectID, rbac.ActionUpdateTasks); err != nil {
			return store.Task{}, err
		}
	}

	previousAssignee := task.AssigneeID
	task.Title = strings.TrimSpace(input.Title)
	task.Description = input.Description
	if input.Priority != "" {
		task.Priority = input.Priority
	}
	task.StartDate = input.StartDate
	task.EndDate = input.EndDate
	task.Color = input.Color
	task.ProjectID = input.ProjectID
	task.AssigneeID = input.AssigneeID
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return store.Task{}, err
	}
	s.indexTask(task)
	s.logActivity(ctx, task.ProjectID, caller.ID, "updated", entityTask, task.ID, task.Title)
	if task.AssigneeID != nil && *task.AssigneeID != caller.ID &&
		(previousAssignee == nil || *previousAssignee != *task.AssigneeID) {
		s.notify(ctx, *task.AssigneeID, notifyAssigned, task.ID, task.Title)
	}
	return task, nil
}

func (s *Service) SetTaskStatus(ctx context.Context, caller store.User, taskID, status string) (store.Task, error) {
	task, err := s.requireTaskAction(ctx, caller, taskID, rbac.ActionUpdateTasks)
	if err != nil {
		return store.Task{}, err
	}
	if !validStatus(status) {
		return store.Task{}, errValidation("Status must be todo, in_progress or done")
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return store.Task{}, err
	}
	task.Status = status
	s.logActivity(ctx, task.ProjectID, caller.ID, "status_changed", entityTask, task.ID, status)
	return task, nil
}

// DeleteTask removes a task and, through the schema, its whole subtree.
// Deletion is allowed to the task's owner or to editor-role members only.
func (s *Service) DeleteTask(ctx context.Context, caller store.User, taskID string) error {
	task, err := s.requireTaskAction(ctx, caller, taskID, rbac.ActionDeleteTasks)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.unindex(entityTask, taskID)
	s.logActivity(ctx, task.ProjectID, caller.ID, "deleted", entityTask, taskID, task.Title)
	return nil
}

func (s *Service) AddSubtask(ctx context.Context, caller store.User, taskID string, input SubtaskInput) (store.Subtask, error) {
	task, err := s.requireTaskAction(ctx, caller, taskID, rbac.ActionUpdateTasks)
	if err != nil {
		return store.Subtask{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.Subtask{}, errValidation("Subtask title is required")
	}
	subtask := store.Subtask{
		ID:          util.NewID(util.IDSubtask),
		TaskID:      taskID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      statusTodo,
		AssigneeID:  input.AssigneeID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	subtask, err = s.store.InsertSubtask(ctx, subtask)
	if err != nil {
		return store.Subtask{}, err
	}
	s.logActivity(ctx, task.ProjectID, caller.ID, "created", entitySubtask, subtask.ID, subtask.Title)
	if subtask.AssigneeID != nil && *subtask.AssigneeID != caller.ID {
		s.notify(ctx, *subtask.AssigneeID, notifyAssigned, subtask.ID, subtask.Title)
	}
	return subtask, nil
}

func (s *Service) UpdateSubtask(ctx context.Context, caller store.User, subtaskID string, input SubtaskInput) (store.Subtask, error) {
	subtask, err := s.store.GetSubtask(ctx, subtaskID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Subtask{}, errNotFound("Subtask not found")
		}
		return store.Subtask{}, err
	}
	task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, rbac.ActionUpdateTasks)
	if err != nil {
		return store.Subtask{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.Subtask{}, errValidation("Subtask title is required")
	}
	if input.Status != "" && !validStatus(input.Status) {
		return store.Subtask{}, errValidation("Status must be todo, in_progress or done")
	}

	previousAssignee := subtask.AssigneeID
	subtask.Title = strings.TrimSpace(input.Title)
	subtask.Description = input.Description
	if input.Status != "" {
		subtask.Status = input.Status
	}
	subtask.AssigneeID = input.AssigneeID
	subtask.StartDate = input.StartDate
	subtask.EndDate = input.EndDate
	if err := s.store.UpdateSubtask(ctx, subtask); err != nil {
		return store.Subtask{}, err
	}
	s.logActivity(ctx, task.ProjectID, caller.ID, "updated", entitySubtask, subtask.ID, subtask.Title)
	if subtask.AssigneeID != nil && *subtask.AssigneeID != caller.ID &&
		(previousAssignee == nil || *previousAssignee != *subtask.AssigneeID) {
		s.notify(ctx, *subtask.AssigneeID, notifyAssigned, subtask.ID, subtask.Title)
	}
	return subtask, nil
}

func (s *Service) DeleteSubtask(ctx context.Context, caller store.User, subtaskID string) error {
	subtask, err := s.store.GetSubtask(ctx, subtaskID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Subtask not found")
		}
		return err
	}
	task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, rbac.ActionDeleteTasks)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSubtask(ctx, subtaskID); err != nil {
		return err
	}
	s.logActivity(ctx, task.ProjectID, caller.ID, "deleted", entitySubtask, subtaskID, subtask.Title)
	return nil
}

// ReorderSubtasks rewrites sibling order from the full id list the client
// sends. The list must be exactly the current sibling set.
func (s *Service) ReorderSubtasks(ctx context.Context, caller store.User, taskID string, orderedIDs []string) error {
	if _, err := s.requireTaskAction(ctx, caller, taskID, rbac.ActionUpdateTasks); err != nil {
		return err
	}
	current, err := s.store.ListSubtasksByTask(ctx, taskID)
	if err != nil {
		return err
	}
	ids := make([]string, len(current))
	for i, subtask := range current {
		ids[i] = subtask.ID
	}
	if !samePermutation(ids, orderedIDs) {
		return errValidation("Reorder list must contain each sibling exactly once")
	}
	return s.store.ReorderSubtasks(ctx, taskID, orderedIDs)
}

func (s *Service) AddWorkOrder(ctx context.Context, caller store.User, subtaskID string, input SubtaskInput) (store.WorkOrder, error) {
	subtask, err := s.store.GetSubtask(ctx, subtaskID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.WorkOrder{}, errNotFound("Subtask not found")
		}
		return store.WorkOrder{}, err
	}
	task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, rbac.ActionUpdateTasks)
	if err != nil {
		return store.WorkOrder{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.WorkOrder{}, errValidation("Work order title is required")
	}
	workOrder := store.WorkOrder{
		ID:          util.NewID(util.IDWorkOrder),
		SubtaskID:   subtaskID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      statusTodo,
		AssigneeID:  input.AssigneeID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	workOrder, err = s.store.InsertWorkOrder(ctx, workOrder)
	if err != nil {
		return store.WorkOrder{}, err
	}
	s.logActivity(ctx, task.ProjectID, caller.ID, "created", entityWorkOrder, workOrder.ID, workOrder.Title)
	if workOrder.AssigneeID != nil && *workOrder.AssigneeID != caller.ID {
		s.notify(ctx, *workOrder.AssigneeID, notifyAssigned, workOrder.ID, workOrder.Title)
	}
	return workOrder, nil
}

func (s *Service) UpdateWorkOrder(ctx context.Context, caller store.User, workOrderID string, input SubtaskInput) (store.WorkOrder, error) {
	workOrder, subtask, err := s.getWorkOrderChain(ctx, workOrderID)
	if err != nil {
		return store.WorkOrder{}, err
	}
	task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, rbac.ActionUpdateTasks)
	if err != nil {
		return store.WorkOrder{}, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return store.WorkOrder{}, errValidation("Work order title is required")
	}
	if input.Status != "" && !validStatus(input.Status) {
		return store.WorkOrder{}, errValidation("Status must be todo, in_progress or done")
	}

	workOrder.Title = strings.TrimSpace(input.Title)
	workOrder.Description = input.Description
	if input.Status != "" {
		workOrder.Status = input.Status
	}
	workOrder.AssigneeID = input.AssigneeID
	workOrder.StartDate = input.StartDate
	workOrder.EndDate = input.EndDate
	if err := s.store.UpdateWorkOrder(ctx, workOrder); err != nil {
		return store.WorkOrder{}, err
	}
	s.logActivity(ctx, task.ProjectID, caller.ID, "updated", entityWorkOrder, workOrder.ID, workOrder.Title)
	return workOrder, nil
}

func (s *Service) DeleteWorkOrder(ctx context.Context, caller store.User, workOrderID string) error {
	workOrder, subtask, err := s.getWorkOrderChain(ctx, workOrderID)
	if err != nil {
		return err
	}
	task, err := s.requireTaskAction(ctx, caller, subtask.TaskID, rbac.ActionDeleteTasks)
	if err != nil {
		return err
	}
	if err := s.store.DeleteWorkOrder(ctx, workOrderID); err != nil {
		return err
	}
	s.logActivity(ctx, task.ProjectID, caller.ID, "deleted", entityWorkOrder, workOrderID, workOrder.Title)
	return nil
}

func (s *Service) ReorderWorkOrders(ctx context.Context, caller store.User, subtaskID string, orderedIDs []string) error {
	subtask, err := s.store.GetSubtask(ctx, subtaskID)
	if err != nil {
		if store.IsNotFound(err) {
			return errNotFound("Subtask not found")
		}
		return err
	}
	if _, err := s.requireTaskAction(ctx, caller, subtask.TaskID, rbac.ActionUpdateTasks); err != nil {
		return err
	}
	current, err := s.store.ListWorkOrdersBySubtask(ctx, subtaskID)
	if err != nil {
		return err
	}
	ids := make([]string, len(current))
	for i, workOrder := range current {
		ids[i] = workOrder.ID
	}
	if !samePermutation(ids, orderedIDs) {
		return errValidation("Reorder list must contain each sibling exactly once")
	}
	return s.store.ReorderWorkOrders(ctx, subtaskID, orderedIDs)
}

func (s *Service) getWorkOrderChain(ctx context.Context, workOrderID string) (store.WorkOrder, store.Subtask, error) {
	workOrder, err := s.store.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.WorkOrder{}, store.Subtask{}, errNotFound("Work order not found")
		}
		return store.WorkOrder{}, store.Subtask{}, err
	}
	subtask, err := s.store.GetSubtask(ctx, workOrder.SubtaskID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.WorkOrder{}, store.Subtask{}, errNotFound("Subtask not found")
		}
		return store.WorkOrder{}, store.Subtask{}, err
	}
	return workOrder, subtask, nil
}

func samePermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range proposed {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}
