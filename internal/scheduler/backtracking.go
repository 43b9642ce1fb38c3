package scheduler

import (
	"context"
	"fmt"
	"sort"
)

type removal struct {
	course int
	value  int
}

// backtrackSearch is the mutable state of one backtracking run. Domains are
// pruned in place and restored from the trail on backtrack.
type backtrackSearch struct {
	ctx      context.Context
	ds       *domainSet
	alive    [][]bool
	size     []int
	assigned []int
	active   []bool
	trail    []removal
	pending  int

	maxNodes    int
	nodes       int
	backtracks  int
	best        []int
	bestCount   int
	count       int
	interrupted bool
	exhausted   bool
}

type backtrackOutcome struct {
	assignment  []int
	solved      bool
	interrupted bool
	nodeLimit   bool
	nodes       int
	backtracks  int
	emptyDomain []string
}

func runBacktracking(ctx context.Context, ds *domainSet, maxNodes int) backtrackOutcome {
	n := len(ds.values)
	s := &backtrackSearch{
		ctx:      ctx,
		ds:       ds,
		alive:    make([][]bool, n),
		size:     make([]int, n),
		assigned: make([]int, n),
		active:   make([]bool, n),
		maxNodes: maxNodes,
	}

	var empty []string
	for i := range ds.values {
		s.assigned[i] = -1
		s.alive[i] = make([]bool, len(ds.values[i]))
		for v := range s.alive[i] {
			s.alive[i][v] = true
		}
		s.size[i] = len(ds.values[i])
		if s.size[i] == 0 {
			empty = append(empty, ds.problem.Courses[i].ID)
			continue
		}
		s.active[i] = true
		s.pending++
	}
	s.best = append([]int(nil), s.assigned...)

	solved := s.pending == 0 || s.search()
	out := backtrackOutcome{
		solved:      solved,
		interrupted: s.interrupted,
		nodeLimit:   s.exhausted,
		nodes:       s.nodes,
		backtracks:  s.backtracks,
		emptyDomain: empty,
	}
	if solved {
		out.assignment = append([]int(nil), s.assigned...)
	} else {
		out.assignment = s.best
	}
	return out
}

func (s *backtrackSearch) halted() bool {
	if s.interrupted || s.exhausted {
		return true
	}
	if s.ctx.Err() != nil {
		s.interrupted = true
		return true
	}
	if s.maxNodes > 0 && s.nodes >= s.maxNodes {
		s.exhausted = true
		return true
	}
	return false
}

func (s *backtrackSearch) search() bool {
	if s.halted() {
		return false
	}
	s.nodes++

	if s.count == s.pending {
		return true
	}

	v := s.selectVariable()
	for _, val := range s.orderValues(v) {
		mark := len(s.trail)
		s.assigned[v] = val
		s.count++
		if s.count > s.bestCount {
			s.bestCount = s.count
			copy(s.best, s.assigned)
		}

		if s.forwardCheck(v, val) && s.search() {
			return true
		}

		s.undo(mark)
		s.assigned[v] = -1
		s.count--
		s.backtracks++
		if s.halted() {
			return false
		}
	}
	return false
}

// selectVariable applies minimum remaining values; ties keep the first course seen.
func (s *backtrackSearch) selectVariable() int {
	best := -1
	for i := range s.assigned {
		if !s.active[i] || s.assigned[i] >= 0 {
			continue
		}
		if best < 0 || s.size[i] < s.size[best] {
			best = i
		}
	}
	return best
}

// orderValues applies least constraining value, preferring slots that satisfy
// the course's preferences when elimination counts tie.
func (s *backtrackSearch) orderValues(v int) []int {
	type scored struct {
		value      int
		eliminated int
		preferred  bool
	}
	open := s.unassignedExcept(v)
	values := make([]scored, 0, s.size[v])
	for val, ok := range s.alive[v] {
		if !ok {
			continue
		}
		values = append(values, scored{value: val, eliminated: s.eliminations(open, v, val), preferred: s.ds.preferred(v, val)})
	}
	sort.SliceStable(values, func(i, j int) bool {
		if values[i].eliminated != values[j].eliminated {
			return values[i].eliminated < values[j].eliminated
		}
		return values[i].preferred && !values[j].preferred
	})
	out := make([]int, len(values))
	for i, sv := range values {
		out[i] = sv.value
	}
	return out
}

func (s *backtrackSearch) unassignedExcept(v int) []int {
	open := make([]int, 0, len(s.assigned))
	for u := range s.assigned {
		if u != v && s.active[u] && s.assigned[u] < 0 {
			open = append(open, u)
		}
	}
	return open
}

func (s *backtrackSearch) eliminations(open []int, v, val int) int {
	count := 0
	for _, u := range open {
		for _, w := range s.ds.rivals(v, val, u) {
			if s.alive[u][w] && s.ds.conflicts(v, val, u, w) {
				count++
			}
		}
	}
	return count
}

// forwardCheck prunes values of unassigned courses that conflict with v=val.
// It returns false as soon as any domain is wiped out.
func (s *backtrackSearch) forwardCheck(v, val int) bool {
	for u := range s.assigned {
		if u == v || !s.active[u] || s.assigned[u] >= 0 {
			continue
		}
		for _, w := range s.ds.rivals(v, val, u) {
			if !s.alive[u][w] || !s.ds.conflicts(v, val, u, w) {
				continue
			}
			s.alive[u][w] = false
			s.size[u]--
			s.trail = append(s.trail, removal{course: u, value: w})
		}
		if s.size[u] == 0 {
			return false
		}
	}
	return true
}

func (s *backtrackSearch) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		r := s.trail[i]
		s.alive[r.course][r.value] = true
		s.size[r.course]++
	}
	s.trail = s.trail[:mark]
}

func (o backtrackOutcome) failureReason(total int) string {
	placed := 0
	for _, v := range o.assignment {
		if v >= 0 {
			placed++
		}
	}
	switch {
	case o.interrupted:
		return fmt.Sprintf("search interrupted after %d nodes; %d of %d courses scheduled", o.nodes, placed, total)
	case o.nodeLimit:
		return fmt.Sprintf("node limit reached after %d nodes; %d of %d courses scheduled", o.nodes, placed, total)
	case len(o.emptyDomain) > 0:
		return fmt.Sprintf("no admissible slot for courses %v; %d of %d courses scheduled", o.emptyDomain, placed, total)
	default:
		return fmt.Sprintf("search space exhausted; %d of %d courses scheduled", placed, total)
	}
}
