// Package conflict finds and resolves documents that share an identifier.
package conflict

import "github.com/abatilo/abbrlink/internal/task"

// Group is a set of two or more tasks holding the same identifier.
type Group struct {
	Identifier string
	Members    []*task.Task
}

// Detect groups tasks by their current identifier and returns every group
// with more than one member. Groups appear in order of their first member,
// members in input order. Tasks without any identifier are ignored.
func Detect(tasks []*task.Task) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, t := range tasks {
		id := t.Identifier()
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			groups[i].Members = append(groups[i].Members, t)
			continue
		}
		index[id] = len(groups)
		groups = append(groups, Group{Identifier: id, Members: []*task.Task{t}})
	}

	conflicts := groups[:0]
	for _, g := range groups {
		if len(g.Members) > 1 {
			conflicts = append(conflicts, g)
		}
	}
	return conflicts
}

// Members returns the set of tasks belonging to any of groups.
func Members(groups []Group) map[*task.Task]bool {
	set := make(map[*task.Task]bool)
	for _, g := range groups {
		for _, t := range g.Members {
			set[t] = true
		}
	}
	return set
}
