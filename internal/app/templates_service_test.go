package app

import (
	"context"
	"net/http"
	"testing"

	"tandem/api/internal/templates"
)

func TestSaveAndCloneTemplate(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")
	task := seedTask(ms, owner, &project.ID, "Build", "in_progress")
	task.Priority = "high"
	task.Description = "the hard part"
	ms.tasks[task.ID] = task
	// Orders 2 and 0 on purpose: a clone must write them through verbatim.
	seedSubtask(ms, task.ID, "Backend", "done", 2)
	first := seedSubtask(ms, task.ID, "Frontend", "todo", 0)
	seedWorkOrder(ms, first.ID, "Wire up forms", "in_progress", 5)

	ctx := context.Background()
	template, err := svc.SaveTemplateFromProject(ctx, owner, TemplateInput{ProjectID: project.ID, Name: "Launch kit"})
	if err != nil {
		t.Fatalf("SaveTemplateFromProject: %v", err)
	}
	if template.TaskCount != 1 || template.SubtaskCount != 2 || template.WorkOrderCount != 1 {
		t.Fatalf("unexpected counts: %+v", template)
	}
	if template.SourceProjectID == nil || *template.SourceProjectID != project.ID {
		t.Fatalf("source project not recorded: %+v", template)
	}

	clone, err := svc.CloneTemplateToProject(ctx, owner, template.ID, ProjectInput{Name: "Launch again"})
	if err != nil {
		t.Fatalf("CloneTemplateToProject: %v", err)
	}
	if clone.ID == project.ID {
		t.Fatal("clone must be a new project")
	}

	tasks, err := ms.ListTasksByProject(ctx, clone.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one cloned task, got %v %v", tasks, err)
	}
	cloned := tasks[0]
	if cloned.ID == task.ID {
		t.Fatal("cloned task must get a fresh id")
	}
	if cloned.Status != "todo" {
		t.Fatalf("cloned task status = %q, want todo", cloned.Status)
	}
	if cloned.Priority != "high" || cloned.Description != "the hard part" {
		t.Fatalf("cloned task lost fields: %+v", cloned)
	}

	subtasks, err := ms.ListSubtasksByTask(ctx, cloned.ID)
	if err != nil || len(subtasks) != 2 {
		t.Fatalf("expected two cloned subtasks, got %v %v", subtasks, err)
	}
	orders := map[string]int{}
	for _, subtask := range subtasks {
		if subtask.Status != "todo" {
			t.Fatalf("cloned subtask status = %q, want todo", subtask.Status)
		}
		orders[subtask.Title] = subtask.Order
	}
	if orders["Frontend"] != 0 || orders["Backend"] != 2 {
		t.Fatalf("order values not preserved verbatim: %v", orders)
	}

	for _, subtask := range subtasks {
		if subtask.Title != "Frontend" {
			continue
		}
		workOrders, err := ms.ListWorkOrdersBySubtask(ctx, subtask.ID)
		if err != nil || len(workOrders) != 1 {
			t.Fatalf("expected one cloned work order, got %v %v", workOrders, err)
		}
		if workOrders[0].Order != 5 || workOrders[0].Status != "todo" {
			t.Fatalf("cloned work order wrong: %+v", workOrders[0])
		}
	}
}

func TestTemplatesArePrivate(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	stranger := seedUser(ms, "Sam", "sam@example.com")
	project := seedProject(ms, owner, "Launch")

	ctx := context.Background()
	template, err := svc.SaveTemplateFromProject(ctx, owner, TemplateInput{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("SaveTemplateFromProject: %v", err)
	}

	_, _, err = svc.GetTemplate(ctx, stranger, template.ID)
	assertDomainStatus(t, err, http.StatusNotFound)
	_, err = svc.CloneTemplateToProject(ctx, stranger, template.ID, ProjectInput{Name: "Steal"})
	assertDomainStatus(t, err, http.StatusNotFound)
	assertDomainStatus(t, svc.DeleteTemplate(ctx, stranger, template.ID), http.StatusNotFound)
}

func TestEditTemplateStructureRecounts(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	project := seedProject(ms, owner, "Launch")

	ctx := context.Background()
	template, err := svc.SaveTemplateFromProject(ctx, owner, TemplateInput{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("SaveTemplateFromProject: %v", err)
	}

	edited := templates.Structure{Tasks: []templates.TaskDef{
		{Title: "Plan", Subtasks: []templates.SubtaskDef{{Title: "Draft"}, {Title: "Review", Order: 1}}},
		{Title: "Execute"},
	}}
	if _, err := svc.EditTemplateStructure(ctx, owner, template.ID, edited); err != nil {
		t.Fatalf("EditTemplateStructure: %v", err)
	}

	stored, err := ms.GetTemplate(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if stored.TaskCount != 2 || stored.SubtaskCount != 2 || stored.WorkOrderCount != 0 {
		t.Fatalf("counts not refreshed: %+v", stored)
	}
	decoded := templates.Decode(stored.Structure)
	if len(decoded.Tasks) != 2 || decoded.Tasks[0].Title != "Plan" {
		t.Fatalf("stored structure wrong: %+v", decoded)
	}
}
