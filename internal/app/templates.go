package app

import (
	"context"
	"strings"

	"tandem/api/internal/rbac"
	"tandem/api/internal/store"
	"tandem/api/internal/templates"
	"tandem/api/internal/util"
)

type TemplateInput struct {
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SaveTemplateFromProject snapshots a project's tree into an id-free,
// reusable structure. Children serialize in stored order.
func (s *Service) SaveTemplateFromProject(ctx context.Context, caller store.User, input TemplateInput) (store.Template, error) {
	project, _, err := s.requireProjectAction(ctx, caller, input.ProjectID, rbac.ActionView)
	if err != nil {
		return store.Template{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = project.Name
	}

	tasks, err := s.store.ListTasksByProject(ctx, input.ProjectID)
	if err != nil {
		return store.Template{}, err
	}
	structure := templates.Structure{Tasks: make([]templates.TaskDef, 0, len(tasks))}
	for _, task := range tasks {
		taskDef := templates.TaskDef{
			Title:       task.Title,
			Description: task.Description,
			Priority:    task.Priority,
		}
		subtasks, err := s.store.ListSubtasksByTask(ctx, task.ID)
		if err != nil {
			return store.Template{}, err
		}
		for _, subtask := range subtasks {
			subtaskDef := templates.SubtaskDef{
				Title:       subtask.Title,
				Description: subtask.Description,
				Order:       subtask.Order,
			}
			workOrders, err := s.store.ListWorkOrdersBySubtask(ctx, subtask.ID)
			if err != nil {
				return store.Template{}, err
			}
			for _, workOrder := range workOrders {
				subtaskDef.WorkOrders = append(subtaskDef.WorkOrders, templates.WorkOrderDef{
					Title:       workOrder.Title,
					Description: workOrder.Description,
					Order:       workOrder.Order,
				})
			}
			taskDef.Subtasks = append(taskDef.Subtasks, subtaskDef)
		}
		structure.Tasks = append(structure.Tasks, taskDef)
	}

	encoded, err := templates.Encode(structure)
	if err != nil {
		return store.Template{}, err
	}
	counts := templates.Count(structure)
	template := store.Template{
		ID:              util.NewID(util.IDTemplate),
		Name:            name,
		Description:     input.Description,
		OwnerID:         caller.ID,
		SourceProjectID: &project.ID,
		Structure:       encoded,
		TaskCount:       counts.Tasks,
		SubtaskCount:    counts.Subtasks,
		WorkOrderCount:  counts.WorkOrders,
	}
	if err := s.store.InsertTemplate(ctx, template); err != nil {
		return store.Template{}, err
	}
	s.logActivity(ctx, &project.ID, caller.ID, "created", entityTemplate, template.ID, name)
	return template, nil
}

func (s *Service) ListTemplates(ctx context.Context, caller store.User) ([]store.Template, error) {
	if caller.ID == "" {
		return []store.Template{}, nil
	}
	return s.store.ListTemplatesForUser(ctx, caller.ID)
}

// GetTemplate returns the template with its decoded structure. Templates are
// private to their owner.
func (s *Service) GetTemplate(ctx context.Context, caller store.User, templateID string) (store.Template, templates.Structure, error) {
	template, err := s.requireOwnTemplate(ctx, caller, templateID)
	if err != nil {
		return store.Template{}, templates.Structure{}, err
	}
	return template, templates.Decode(template.Structure), nil
}

// EditTemplateStructure replaces the stored structure with a normalized copy
// of the caller's edit: blank-titled entries drop out and order values are
// regenerated from array position. Counts are recomputed alongside.
func (s *Service) EditTemplateStructure(ctx context.Context, caller store.User, templateID string, structure templates.Structure) (templates.Structure, error) {
	if _, err := s.requireOwnTemplate(ctx, caller, templateID); err != nil {
		return templates.Structure{}, err
	}
	normalized := templates.Normalize(structure)
	encoded, err := templates.Encode(normalized)
	if err != nil {
		return templates.Structure{}, err
	}
	counts := templates.Count(normalized)
	if err := s.store.UpdateTemplateStructure(ctx, templateID, encoded, counts.Tasks, counts.Subtasks, counts.WorkOrders); err != nil {
		return templates.Structure{}, err
	}
	return normalized, nil
}

func (s *Service) UpdateTemplateMeta(ctx context.Context, caller store.User, templateID, name, description string) error {
	if _, err := s.requireOwnTemplate(ctx, caller, templateID); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errValidation("Template name is required")
	}
	return s.store.UpdateTemplateMeta(ctx, templateID, strings.TrimSpace(name), description)
}

func (s *Service) DeleteTemplate(ctx context.Context, caller store.User, templateID string) error {
	if _, err := s.requireOwnTemplate(ctx, caller, templateID); err != nil {
		return err
	}
	return s.store.DeleteTemplate(ctx, templateID)
}

// CloneTemplateToProject instantiates a template as a new project owned by
// the caller. Every entity gets a fresh id, every status resets to todo, and
// stored order values are written through unchanged. The walk is a sequence
// of inserts, not one transaction; a failure part-way leaves the project
// with the subtree built so far.
func (s *Service) CloneTemplateToProject(ctx context.Context, caller store.User, templateID string, input ProjectInput) (store.Project, error) {
	template, err := s.requireOwnTemplate(ctx, caller, templateID)
	if err != nil {
		return store.Project{}, err
	}
	if strings.TrimSpace(input.Name) == "" {
		input.Name = template.Name
	}
	project, err := s.CreateProject(ctx, caller, input)
	if err != nil {
		return store.Project{}, err
	}

	structure := templates.Decode(template.Structure)
	for _, taskDef := range structure.Tasks {
		priority := taskDef.Priority
		if !validPriority(priority) {
			priority = priorityMedium
		}
		task := store.Task{
			ID:          util.NewID(util.IDTask),
			Title:       taskDef.Title,
			Description: taskDef.Description,
			Status:      statusTodo,
			Priority:    priority,
			ProjectID:   &project.ID,
			OwnerID:     caller.ID,
		}
		if err := s.store.InsertTask(ctx, task); err != nil {
			return store.Project{}, err
		}
		s.indexTask(task)

		for _, subtaskDef := range taskDef.Subtasks {
			subtask := store.Subtask{
				ID:          util.NewID(util.IDSubtask),
				TaskID:      task.ID,
				Title:       subtaskDef.Title,
				Description: subtaskDef.Description,
				Status:      statusTodo,
				Order:       subtaskDef.Order,
			}
			if err := s.store.InsertSubtaskWithOrder(ctx, subtask); err != nil {
				return store.Project{}, err
			}
			for _, workOrderDef := range subtaskDef.WorkOrders {
				workOrder := store.WorkOrder{
					ID:          util.NewID(util.IDWorkOrder),
					SubtaskID:   subtask.ID,
					Title:       workOrderDef.Title,
					Description: workOrderDef.Description,
					Status:      statusTodo,
					Order:       workOrderDef.Order,
				}
				if err := s.store.InsertWorkOrderWithOrder(ctx, workOrder); err != nil {
					return store.Project{}, err
				}
			}
		}
	}
	s.logActivity(ctx, &project.ID, caller.ID, "cloned", entityTemplate, templateID, project.Name)
	return project, nil
}

func (s *Service) requireOwnTemplate(ctx context.Context, caller store.User, templateID string) (store.Template, error) {
	if caller.ID == "" {
		return store.Template{}, errUnauthenticated()
	}
	template, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Template{}, errNotFound("Template not found")
		}
		return store.Template{}, err
	}
	if template.OwnerID != caller.ID {
		return store.Template{}, errNotFound("Template not found")
	}
	return template, nil
}
