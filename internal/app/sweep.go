package app

import (
	"context"
	"fmt"
	"log"
	"time"
)

// SweepDueDates scans not-done tasks whose end date is inside the due-soon
// window or already past, and notifies the assignee (the owner when nothing
// is assigned). A task nags at most once per day per kind; the existing
// notification row is the dedup record.
func (s *Service) SweepDueDates(ctx context.Context, now time.Time) (int, error) {
	sent := 0

	overdue, err := s.store.ListTasksDueBefore(ctx, time.Time{}, now)
	if err != nil {
		return 0, err
	}
	for _, task := range overdue {
		if s.sweepNotify(ctx, now, notifyOverdue, task.ID, targetUser(task.AssigneeID, task.OwnerID),
			fmt.Sprintf("%s is overdue", task.Title)) {
			sent++
		}
	}

	dueSoon, err := s.store.ListTasksDueBefore(ctx, now, now.Add(s.cfg.DueSoonWindow))
	if err != nil {
		return sent, err
	}
	for _, task := range dueSoon {
		if s.sweepNotify(ctx, now, notifyDueSoon, task.ID, targetUser(task.AssigneeID, task.OwnerID),
			fmt.Sprintf("%s is due %s", task.Title, task.EndDate.Format("Jan 2"))) {
			sent++
		}
	}
	return sent, nil
}

func (s *Service) sweepNotify(ctx context.Context, now time.Time, kind, taskID, userID, detail string) bool {
	exists, err := s.store.NotificationExists(ctx, userID, kind, taskID, now.Add(-24*time.Hour))
	if err != nil {
		log.Printf("sweep dedup check: %v", err)
		return false
	}
	if exists {
		return false
	}
	s.notify(ctx, userID, kind, taskID, detail)
	return true
}

func targetUser(assigneeID *string, ownerID string) string {
	if assigneeID != nil && *assigneeID != "" {
		return *assigneeID
	}
	return ownerID
}

// RunSweeper loops SweepDueDates on the configured interval until the
// context is cancelled. Meant to run in its own goroutine from main.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sent, err := s.SweepDueDates(ctx, time.Now()); err != nil {
				log.Printf("due-date sweep: %v", err)
			} else if sent > 0 {
				log.Printf("due-date sweep sent %d notifications", sent)
			}
		}
	}
}
