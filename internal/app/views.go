package app

import (
	"context"

	"tandem/api/internal/store"
)

// accessibleTasks is the one scope rule every flattened view starts from:
// tasks the caller owns, plus tasks of projects where they hold a non-owner
// membership, deduplicated by id. Owner-role membership rows contribute
// nothing here; ownership already covers them.
func (s *Service) accessibleTasks(ctx context.Context, caller store.User) ([]store.Task, error) {
	if caller.ID == "" {
		return []store.Task{}, nil
	}
	owned, err := s.store.ListTasksByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	sharedProjects, err := s.store.ListSharedProjectIDs(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(owned))
	tasks := make([]store.Task, 0, len(owned))
	for _, task := range owned {
		seen[task.ID] = true
		tasks = append(tasks, task)
	}
	for _, projectID := range sharedProjects {
		shared, err := s.store.ListTasksByProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		for _, task := range shared {
			if seen[task.ID] {
				continue
			}
			seen[task.ID] = true
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// viewCache memoizes project and user lookups for the duration of a single
// flatten call so sibling rows don't refetch the same names.
type viewCache struct {
	svc      *Service
	projects map[string]*store.Project
	names    map[string]string
}

func (s *Service) newViewCache() *viewCache {
	return &viewCache{
		svc:      s,
		projects: make(map[string]*store.Project),
		names:    make(map[string]string),
	}
}

func (c *viewCache) project(ctx context.Context, projectID string) *store.Project {
	if cached, ok := c.projects[projectID]; ok {
		return cached
	}
	project, err := c.svc.store.GetProject(ctx, projectID)
	if err != nil {
		c.projects[projectID] = nil
		return nil
	}
	c.projects[projectID] = &project
	return c.projects[projectID]
}

func (c *viewCache) projectName(ctx context.Context, projectID *string) string {
	if projectID == nil {
		return ""
	}
	if project := c.project(ctx, *projectID); project != nil {
		return project.Name
	}
	return ""
}

func (c *viewCache) userName(ctx context.Context, userID *string) string {
	if userID == nil {
		return ""
	}
	if cached, ok := c.names[*userID]; ok {
		return cached
	}
	name := ""
	if user, err := c.svc.store.GetUserByID(ctx, *userID); err == nil {
		name = user.DisplayName
	}
	c.names[*userID] = name
	return name
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
