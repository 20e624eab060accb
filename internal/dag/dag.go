package dag

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCycle is returned by Sort when the graph is not acyclic.
var ErrCycle = errors.New("dag: cycle detected")

// CycleError lists the nodes on one cycle, first node repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

type node struct {
	id    string
	index int
	deps  map[string]*node
	// dependents in insertion order of the edges.
	dependents []*node
}

// Graph is a directed graph where an edge from -> to means to depends on
// from.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node. Adding an existing node does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	n := &node{id: id, index: len(g.order), deps: make(map[string]*node)}
	g.nodes[id] = n
	g.order = append(g.order, n)
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// AddEdge records that toID depends on fromID. A self edge is a cycle of
// length one and is reported by Sort.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	if _, dup := to.deps[fromID]; dup {
		return nil
	}
	to.deps[fromID] = from
	from.dependents = append(from.dependents, to)
	return nil
}

// Dependencies returns the nodes id depends on, in insertion order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	out := make([]string, 0, len(n.deps))
	for _, m := range g.order {
		if _, ok := n.deps[m.id]; ok {
			out = append(out, m.id)
		}
	}
	return out, nil
}

// Sort returns the nodes so that every node comes after its dependencies.
// Among nodes that are ready at the same time the earlier inserted one goes
// first. On a cycle the error is a *CycleError.
func (g *Graph) Sort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make([]int, len(g.order))
	var ready []*node
	for i, n := range g.order {
		pending[i] = len(n.deps)
		if pending[i] == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		// ready is small; a linear scan for the lowest index keeps the
		// order stable without a heap.
		best := 0
		for i := range ready {
			if ready[i].index < ready[best].index {
				best = i
			}
		}
		n := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		out = append(out, n.id)
		for _, d := range n.dependents {
			pending[d.index]--
			if pending[d.index] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(out) < len(g.order) {
		return nil, &CycleError{Path: g.findCycle(pending)}
	}
	return out, nil
}

// findCycle walks dependencies from the first unsorted node until a node
// repeats. Every unsorted node has an unsorted dependency, so the walk
// always closes.
func (g *Graph) findCycle(pending []int) []string {
	var start *node
	for _, n := range g.order {
		if pending[n.index] > 0 {
			start = n
			break
		}
	}
	seen := map[string]int{}
	var path []string
	for n := start; ; {
		if at, ok := seen[n.id]; ok {
			return append(path[at:], n.id)
		}
		seen[n.id] = len(path)
		path = append(path, n.id)
		var next *node
		for _, m := range g.order {
			if _, ok := n.deps[m.id]; ok && pending[m.index] > 0 {
				next = m
				break
			}
		}
		n = next
	}
}
