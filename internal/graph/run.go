package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"BriefCast/internal/checkpoint"
)

// ErrUnknownNode is returned when a checkpoint references a node the
// current graph no longer has, e.g. after a rename between releases.
var ErrUnknownNode = errors.New("graph: checkpoint references unknown node")

type writesKey struct{}

type writeBuffer struct {
	writes []checkpoint.PendingWrite
}

// Emit buffers a side-effect record destined for a downstream sink. The
// record is attached to the checkpoint written after the current node
// completes; a crash before that commit discards it together with the
// step's state.
func Emit(ctx context.Context, channel string, value any) error {
	buf, ok := ctx.Value(writesKey{}).(*writeBuffer)
	if !ok {
		return fmt.Errorf("graph: Emit called outside a node execution")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("graph: marshal pending write for %s: %w", channel, err)
	}
	buf.writes = append(buf.writes, checkpoint.PendingWrite{Channel: channel, Value: raw})
	return nil
}

// Invoke runs the graph to its terminal state for the given run id.
//
// If the store already holds checkpoints for this run, execution resumes at
// the node recorded after the last completed step; otherwise it starts at
// the entry node with the provided initial state. One checkpoint is written
// after every node execution, before advancing, so no completed node's
// effect is lost to an interruption between steps.
func (g *Graph[S]) Invoke(ctx context.Context, store checkpoint.Store, runID string, initial S) (S, error) {
	state := initial
	current := g.entry

	latest, err := store.Latest(ctx, g.workflow, runID)
	switch {
	case err == nil:
		if latest.Version != checkpoint.SnapshotVersion {
			return state, fmt.Errorf("graph %s: run %s has snapshot version %d, want %d",
				g.workflow, runID, latest.Version, checkpoint.SnapshotVersion)
		}
		if err := json.Unmarshal(latest.State, &state); err != nil {
			return state, fmt.Errorf("graph %s: decode checkpointed state for run %s: %w", g.workflow, runID, err)
		}
		if latest.Next == End {
			return state, nil
		}
		if _, ok := g.nodes[latest.Next]; !ok {
			return state, fmt.Errorf("%w: %q (workflow %s, run %s)", ErrUnknownNode, latest.Next, g.workflow, runID)
		}
		current = latest.Next
	case errors.Is(err, checkpoint.ErrNotFound):
		// Fresh run.
	default:
		return state, fmt.Errorf("graph %s: load checkpoint for run %s: %w", g.workflow, runID, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %q (workflow %s, run %s)", ErrUnknownNode, current, g.workflow, runID)
		}

		buf := &writeBuffer{}
		next, err := g.step(context.WithValue(ctx, writesKey{}, buf), fn, current, &state)
		if err != nil {
			return state, err
		}

		snapshot, err := json.Marshal(state)
		if err != nil {
			return state, fmt.Errorf("graph %s: encode state after %q: %w", g.workflow, current, err)
		}

		_, err = store.Put(ctx, checkpoint.Entry{
			Workflow: g.workflow,
			RunID:    runID,
			Node:     current,
			Next:     next,
			State:    snapshot,
			Writes:   buf.writes,
		})
		if err != nil {
			return state, fmt.Errorf("graph %s: checkpoint after %q: %w", g.workflow, current, err)
		}

		if next == End {
			return state, nil
		}
		current = next
	}
}

// step executes one node and resolves its successor.
func (g *Graph[S]) step(ctx context.Context, fn NodeFunc[S], current string, state *S) (string, error) {
	updated, err := fn(ctx, *state)
	if err != nil {
		return "", fmt.Errorf("graph %s: node %q: %w", g.workflow, current, err)
	}
	*state = updated

	if r, ok := g.routers[current]; ok {
		route := r.decide(*state)
		target, ok := r.targets[route]
		if !ok {
			return "", fmt.Errorf("graph %s: node %q returned unregistered route %q", g.workflow, current, route)
		}
		return target, nil
	}

	next, ok := g.edges[current]
	if !ok {
		return "", fmt.Errorf("graph %s: node %q has no successor", g.workflow, current)
	}
	return next, nil
}
