package app

import (
	"context"
	"testing"
	"time"
)

func TestSweepDueDates(t *testing.T) {
	svc, ms := newTestService()
	owner := seedUser(ms, "Olive", "olive@example.com")
	assignee := seedUser(ms, "Ann", "ann@example.com")
	project := seedProject(ms, owner, "Launch")

	now := time.Now()
	past := now.Add(-2 * time.Hour)
	soon := now.Add(24 * time.Hour)
	far := now.Add(14 * 24 * time.Hour)

	overdue := seedTask(ms, owner, &project.ID, "Late", "in_progress")
	overdue.EndDate = &past
	overdue.AssigneeID = &assignee.ID
	ms.tasks[overdue.ID] = overdue

	dueSoon := seedTask(ms, owner, &project.ID, "Soon", "todo")
	dueSoon.EndDate = &soon
	ms.tasks[dueSoon.ID] = dueSoon

	// Outside the window and done tasks stay quiet.
	relaxed := seedTask(ms, owner, &project.ID, "Later", "todo")
	relaxed.EndDate = &far
	ms.tasks[relaxed.ID] = relaxed
	finished := seedTask(ms, owner, &project.ID, "Done", "done")
	finished.EndDate = &past
	ms.tasks[finished.ID] = finished

	ctx := context.Background()
	sent, err := svc.SweepDueDates(ctx, now)
	if err != nil {
		t.Fatalf("SweepDueDates: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}

	// The overdue nag goes to the assignee, the due-soon one to the owner.
	assigneeNotes, _ := ms.ListNotificationsForUser(ctx, assignee.ID)
	if len(assigneeNotes) != 1 || assigneeNotes[0].Kind != "overdue" || assigneeNotes[0].RefID != overdue.ID {
		t.Fatalf("unexpected assignee notifications: %+v", assigneeNotes)
	}
	ownerNotes, _ := ms.ListNotificationsForUser(ctx, owner.ID)
	if len(ownerNotes) != 1 || ownerNotes[0].Kind != "due_soon" || ownerNotes[0].RefID != dueSoon.ID {
		t.Fatalf("unexpected owner notifications: %+v", ownerNotes)
	}

	// A second sweep inside 24h is deduplicated by the notification rows.
	sent, err = svc.SweepDueDates(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if sent != 0 {
		t.Fatalf("second sweep sent = %d, want 0", sent)
	}
}
