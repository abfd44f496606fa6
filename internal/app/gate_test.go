package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"tandem/api/internal/store"
)

func assertDomainStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != want {
		t.Fatalf("status = %d, want %d (%v)", domainErr.Status, want, err)
	}
}

// sharedProject seeds a project owned by owner with editor and viewer members.
func sharedProject(ms *memStore) (store.Project, store.User, store.User, store.User) {
	owner := seedUser(ms, "Olive", "olive@example.com")
	editor := seedUser(ms, "Ed", "ed@example.com")
	viewer := seedUser(ms, "Vic", "vic@example.com")
	project := seedProject(ms, owner, "Launch")
	ms.members[project.ID][editor.ID] = "editor"
	ms.members[project.ID][viewer.ID] = "viewer"
	return project, owner, editor, viewer
}

func TestViewerCanViewButNotMutate(t *testing.T) {
	svc, ms := newTestService()
	project, owner, _, viewer := sharedProject(ms)
	task := seedTask(ms, owner, &project.ID, "Ship it", "todo")

	ctx := context.Background()
	if _, err := svc.GetTaskDetail(ctx, viewer, task.ID); err != nil {
		t.Fatalf("viewer should see the task: %v", err)
	}
	_, err := svc.SetTaskStatus(ctx, viewer, task.ID, "done")
	assertDomainStatus(t, err, http.StatusForbidden)
	_, err = svc.UpdateTask(ctx, viewer, task.ID, TaskInput{Title: "Renamed"})
	assertDomainStatus(t, err, http.StatusForbidden)
	assertDomainStatus(t, svc.DeleteTask(ctx, viewer, task.ID), http.StatusForbidden)
}

func TestEditorCanUpdateAndDelete(t *testing.T) {
	svc, ms := newTestService()
	project, owner, editor, _ := sharedProject(ms)
	task := seedTask(ms, owner, &project.ID, "Ship it", "todo")

	ctx := context.Background()
	updated, err := svc.SetTaskStatus(ctx, editor, task.ID, "in_progress")
	if err != nil {
		t.Fatalf("editor status update: %v", err)
	}
	if updated.Status != "in_progress" {
		t.Fatalf("status = %q, want in_progress", updated.Status)
	}
	if err := svc.DeleteTask(ctx, editor, task.ID); err != nil {
		t.Fatalf("editor delete: %v", err)
	}
	if _, err := ms.GetTask(ctx, task.ID); err == nil {
		t.Fatal("task should be gone")
	}
}

// The owner role deliberately lacks delete: a project owner can edit any
// member's task but cannot delete it unless they also own the task.
func TestProjectOwnerCannotDeleteMembersTask(t *testing.T) {
	svc, ms := newTestService()
	project, owner, editor, _ := sharedProject(ms)
	task := seedTask(ms, editor, &project.ID, "Editor's task", "todo")

	ctx := context.Background()
	if _, err := svc.SetTaskStatus(ctx, owner, task.ID, "done"); err != nil {
		t.Fatalf("owner should be able to update: %v", err)
	}
	assertDomainStatus(t, svc.DeleteTask(ctx, owner, task.ID), http.StatusForbidden)
}

func TestTaskOwnershipBypassesRole(t *testing.T) {
	svc, ms := newTestService()
	project, _, _, viewer := sharedProject(ms)
	task := seedTask(ms, viewer, &project.ID, "Viewer's own task", "todo")

	ctx := context.Background()
	if _, err := svc.SetTaskStatus(ctx, viewer, task.ID, "done"); err != nil {
		t.Fatalf("task owner should update regardless of role: %v", err)
	}
	if err := svc.DeleteTask(ctx, viewer, task.ID); err != nil {
		t.Fatalf("task owner should delete regardless of role: %v", err)
	}
}

// Non-members learn nothing: the project and its tasks read as absent, not
// as forbidden.
func TestNonMembersSeeNotFound(t *testing.T) {
	svc, ms := newTestService()
	project, owner, _, _ := sharedProject(ms)
	task := seedTask(ms, owner, &project.ID, "Hidden", "todo")
	stranger := seedUser(ms, "Sam", "sam@example.com")

	ctx := context.Background()
	_, _, err := svc.GetProject(ctx, stranger, project.ID)
	assertDomainStatus(t, err, http.StatusNotFound)
	_, err = svc.GetTaskDetail(ctx, stranger, task.ID)
	assertDomainStatus(t, err, http.StatusNotFound)
	_, err = svc.ListProjectTasks(ctx, stranger, project.ID)
	assertDomainStatus(t, err, http.StatusNotFound)
}

func TestDeleteProjectIsOwnershipOnly(t *testing.T) {
	svc, ms := newTestService()
	project, owner, editor, _ := sharedProject(ms)

	ctx := context.Background()
	assertDomainStatus(t, svc.DeleteProject(ctx, editor, project.ID), http.StatusForbidden)
	if err := svc.DeleteProject(ctx, owner, project.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := ms.GetProject(ctx, project.ID); err == nil {
		t.Fatal("project should be gone")
	}
}

func TestCreateTaskRequiresUpdateRights(t *testing.T) {
	svc, ms := newTestService()
	project, _, editor, viewer := sharedProject(ms)

	ctx := context.Background()
	_, err := svc.CreateTask(ctx, viewer, TaskInput{Title: "Nope", ProjectID: &project.ID})
	assertDomainStatus(t, err, http.StatusForbidden)

	task, err := svc.CreateTask(ctx, editor, TaskInput{Title: "Yes", ProjectID: &project.ID})
	if err != nil {
		t.Fatalf("editor create: %v", err)
	}
	if task.OwnerID != editor.ID || task.Status != "todo" {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestAnonymousCallers(t *testing.T) {
	svc, ms := newTestService()
	project, owner, _, _ := sharedProject(ms)
	task := seedTask(ms, owner, &project.ID, "Ship it", "todo")

	ctx := context.Background()
	anon := store.User{}

	projects, err := svc.ListProjects(ctx, anon)
	if err != nil || len(projects) != 0 {
		t.Fatalf("anonymous list should be empty, got %v %v", projects, err)
	}
	items, err := svc.BoardView(ctx, anon)
	if err != nil || len(items) != 0 {
		t.Fatalf("anonymous board should be empty, got %d items, err %v", len(items), err)
	}
	_, err = svc.SetTaskStatus(ctx, anon, task.ID, "done")
	assertDomainStatus(t, err, http.StatusUnauthorized)
	_, err = svc.CreateProject(ctx, anon, ProjectInput{Name: "X"})
	assertDomainStatus(t, err, http.StatusUnauthorized)
}

func TestRemoveMemberRules(t *testing.T) {
	svc, ms := newTestService()
	project, owner, editor, viewer := sharedProject(ms)

	ctx := context.Background()
	// The owner row is untouchable, even for the owner.
	assertDomainStatus(t, svc.RemoveMember(ctx, owner, project.ID, owner.ID), http.StatusUnprocessableEntity)
	// Members cannot remove each other.
	assertDomainStatus(t, svc.RemoveMember(ctx, viewer, project.ID, editor.ID), http.StatusForbidden)
	// Any member may leave.
	if err := svc.RemoveMember(ctx, viewer, project.ID, viewer.ID); err != nil {
		t.Fatalf("self removal: %v", err)
	}
	// The owner manages the roster.
	if err := svc.RemoveMember(ctx, owner, project.ID, editor.ID); err != nil {
		t.Fatalf("owner removal: %v", err)
	}
	if _, err := ms.GetMemberRole(ctx, project.ID, editor.ID); err == nil {
		t.Fatal("editor membership should be gone")
	}
}
