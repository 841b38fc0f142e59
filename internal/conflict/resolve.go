package conflict

import (
	"log/slog"
	"slices"

	"github.com/abatilo/abbrlink/internal/hash"
	"github.com/abatilo/abbrlink/internal/task"
)

// maxDraws bounds the redraws for one member within a round. A member still
// colliding afterwards keeps its last draw and is caught by the next round.
const maxDraws = 16

// State is the terminal state of a resolution run.
type State string

const (
	StateResolved  State = "resolved"
	StateExhausted State = "exhausted"
)

// Outcome describes how a resolution run ended.
type Outcome struct {
	State  State
	Rounds int // reassignment passes performed
	// Unresolved holds the conflicts left when the round limit was reached.
	Unresolved []Group
	// Preexisting holds conflicts made only of pinned tasks, which are never changed.
	Preexisting []Group
}

// Resolver runs the assign, detect and reassign protocol.
type Resolver struct {
	gen       *hash.Generator
	mode      hash.Mode
	maxRounds int
	logger    *slog.Logger
}

// NewResolver creates a Resolver. Initial identifiers come from gen in the
// given mode; reassignments always draw random identifiers.
func NewResolver(gen *hash.Generator, mode hash.Mode, maxRounds int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{gen: gen, mode: mode, maxRounds: maxRounds, logger: logger}
}

// Resolve assigns identifiers to selected tasks that lack one and reassigns
// until no selected task shares an identifier with any other task, or until
// the round limit is reached. Pinned tasks keep their identifiers and only
// occupy them.
func (r *Resolver) Resolve(selected, pinned []*task.Task) Outcome {
	for _, t := range selected {
		if t.Assigned == "" {
			t.Assigned = r.gen.Generate(t.Doc.Name, r.mode)
		}
	}

	isPinned := make(map[*task.Task]bool, len(pinned))
	for _, t := range pinned {
		isPinned[t] = true
	}
	all := make([]*task.Task, 0, len(selected)+len(pinned))
	all = append(all, selected...)
	all = append(all, pinned...)

	for round := 0; ; round++ {
		actionable, preexisting := split(Detect(all), isPinned)
		r.logger.Debug("conflict detection",
			"round", round,
			"conflicts", len(actionable),
			"preexisting", len(preexisting))

		if len(actionable) == 0 {
			return Outcome{State: StateResolved, Rounds: round, Preexisting: preexisting}
		}
		if round == r.maxRounds {
			return Outcome{
				State:       StateExhausted,
				Rounds:      round,
				Unresolved:  actionable,
				Preexisting: preexisting,
			}
		}
		r.reassign(actionable, all, isPinned)
	}
}

// reassign keeps one holder per group and gives every other member a fresh
// random identifier not held by any task.
func (r *Resolver) reassign(groups []Group, all []*task.Task, isPinned map[*task.Task]bool) {
	taken := task.Identifiers(all)
	for _, g := range groups {
		members := slices.Clone(g.Members)
		task.SortByCreated(members)

		// Pinned members always keep their identifier; otherwise the oldest does.
		keepOldest := !slices.ContainsFunc(members, func(t *task.Task) bool { return isPinned[t] })
		for i, t := range members {
			if isPinned[t] || (keepOldest && i == 0) {
				continue
			}
			id := r.gen.FromRandom()
			for draw := 1; taken[id] && draw < maxDraws; draw++ {
				id = r.gen.FromRandom()
			}
			r.logger.Debug("reassigned identifier",
				"document", t.Doc.Rel,
				"from", t.Assigned,
				"to", id)
			t.Assigned = id
			taken[id] = true
		}
	}
}

// split separates groups with at least one changeable member from groups
// made only of pinned tasks.
func split(groups []Group, isPinned map[*task.Task]bool) (actionable, preexisting []Group) {
	for _, g := range groups {
		if slices.ContainsFunc(g.Members, func(t *task.Task) bool { return !isPinned[t] }) {
			actionable = append(actionable, g)
		} else {
			preexisting = append(preexisting, g)
		}
	}
	return actionable, preexisting
}
