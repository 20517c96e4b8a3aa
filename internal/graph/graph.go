// Package graph is a small directed-graph execution engine: named nodes
// transform a state value, fixed or conditional edges pick the successor,
// and every completed step is checkpointed so interrupted runs resume
// where they stopped.
package graph

import (
	"context"
	"fmt"
)

// End is the terminal marker. An edge or route pointing at End finishes
// the run.
const End = "__end__"

// Route is the closed label a router returns to select its successor.
// Labels are matched against the registered target map; an unregistered
// label is a run-time error, and the target map itself is validated at
// compile time.
type Route string

// NodeFunc transforms the run state. A returned error aborts the run and
// leaves the previous checkpoint as the resume point, so node bodies must
// be safe to re-execute against input they already partially handled.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc inspects the state a node just produced and picks a route.
// It must be pure: no I/O, no mutation.
type RouterFunc[S any] func(state S) Route

type router[S any] struct {
	decide  RouterFunc[S]
	targets map[Route]string
}

// Spec is a static description of a graph, assembled before compilation.
type Spec[S any] struct {
	workflow string
	entry    string
	nodes    map[string]NodeFunc[S]
	edges    map[string]string
	routers  map[string]router[S]
}

// NewSpec starts an empty graph specification for the named workflow.
// The workflow name scopes the checkpoint collection.
func NewSpec[S any](workflow string) *Spec[S] {
	return &Spec[S]{
		workflow: workflow,
		nodes:    map[string]NodeFunc[S]{},
		edges:    map[string]string{},
		routers:  map[string]router[S]{},
	}
}

// AddNode registers a named node, replacing any previous definition.
func (s *Spec[S]) AddNode(name string, fn NodeFunc[S]) *Spec[S] {
	s.nodes[name] = fn
	return s
}

// AddEdge declares that `to` always follows `from`. Use End to terminate.
func (s *Spec[S]) AddEdge(from, to string) *Spec[S] {
	s.edges[from] = to
	return s
}

// AddRouter declares a conditional edge: after `from` completes, decide
// picks a Route and the matching entry in targets names the successor.
func (s *Spec[S]) AddRouter(from string, decide RouterFunc[S], targets map[Route]string) *Spec[S] {
	s.routers[from] = router[S]{decide: decide, targets: targets}
	return s
}

// SetEntry names the node a fresh run starts at.
func (s *Spec[S]) SetEntry(name string) *Spec[S] {
	s.entry = name
	return s
}

// Graph is a validated, executable plan.
type Graph[S any] struct {
	workflow string
	entry    string
	nodes    map[string]NodeFunc[S]
	edges    map[string]string
	routers  map[string]router[S]
}

// Compile validates the specification and returns an executable graph.
// Unknown successors, a missing entry, and nodes without any outgoing
// edge are configuration errors caught here rather than mid-run.
func (s *Spec[S]) Compile() (*Graph[S], error) {
	if s.workflow == "" {
		return nil, fmt.Errorf("graph: workflow name is empty")
	}
	if s.entry == "" {
		return nil, fmt.Errorf("graph %s: entry node not set", s.workflow)
	}
	if _, ok := s.nodes[s.entry]; !ok {
		return nil, fmt.Errorf("graph %s: entry node %q is not registered", s.workflow, s.entry)
	}

	for from, to := range s.edges {
		if _, ok := s.nodes[from]; !ok {
			return nil, fmt.Errorf("graph %s: edge from unknown node %q", s.workflow, from)
		}
		if _, ok := s.routers[from]; ok {
			return nil, fmt.Errorf("graph %s: node %q has both a fixed edge and a router", s.workflow, from)
		}
		if to != End {
			if _, ok := s.nodes[to]; !ok {
				return nil, fmt.Errorf("graph %s: edge %q -> unknown node %q", s.workflow, from, to)
			}
		}
	}

	for from, r := range s.routers {
		if _, ok := s.nodes[from]; !ok {
			return nil, fmt.Errorf("graph %s: router on unknown node %q", s.workflow, from)
		}
		if r.decide == nil {
			return nil, fmt.Errorf("graph %s: router on %q has no decision function", s.workflow, from)
		}
		if len(r.targets) == 0 {
			return nil, fmt.Errorf("graph %s: router on %q has no targets", s.workflow, from)
		}
		for route, target := range r.targets {
			if target != End {
				if _, ok := s.nodes[target]; !ok {
					return nil, fmt.Errorf("graph %s: route %q on %q -> unknown node %q", s.workflow, route, from, target)
				}
			}
		}
	}

	for name := range s.nodes {
		_, hasEdge := s.edges[name]
		_, hasRouter := s.routers[name]
		if !hasEdge && !hasRouter {
			return nil, fmt.Errorf("graph %s: node %q has no outgoing edge", s.workflow, name)
		}
	}

	return &Graph[S]{
		workflow: s.workflow,
		entry:    s.entry,
		nodes:    s.nodes,
		edges:    s.edges,
		routers:  s.routers,
	}, nil
}

// Workflow reports the checkpoint collection name this graph runs under.
func (g *Graph[S]) Workflow() string {
	return g.workflow
}
