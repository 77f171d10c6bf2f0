package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// definitionSummary is the persisted projection of a graph.Definition.
// User-code fields (TransformFunc, FilterFunc, AggregateFunc, SinkFunc,
// EdgePredicate, EdgeMapper) are Go closures and cannot round-trip through
// JSON, so only the structural shape is persisted: enough to audit a
// graph's topology or diff it across deploys, not to rebuild it without
// the caller re-supplying its original closures.
type definitionSummary struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Version string          `json:"version"`
	NodeIDs []nodeSummary   `json:"nodes"`
	Edges   []edgeSummary   `json:"edges"`
}

type nodeSummary struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type edgeSummary struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// stateSnapshot is the persisted projection of a Runner's live state: its
// lifecycle state and graph-wide variables. Variables must themselves be
// JSON-serializable for a save to succeed.
type stateSnapshot struct {
	State     string         `json:"state"`
	Variables map[string]any `json:"variables"`
	SavedAt   int64          `json:"savedAt"`
}

func (r *Runner) definitionKey() string  { return fmt.Sprintf("graph:%s:definition", r.def.ID) }
func (r *Runner) stateKey() string       { return fmt.Sprintf("graph:%s:state", r.def.ID) }
func (r *Runner) checkpointKeyPrefix() string {
	return fmt.Sprintf("graph:%s:checkpoint:", r.def.ID)
}

// SaveDefinition persists the graph's structural shape under
// "graph:<id>:definition".
func (r *Runner) SaveDefinition(ctx context.Context) error {
	if r.persist == nil {
		return fmt.Errorf("runner: no store configured")
	}
	summary := definitionSummary{ID: r.def.ID, Name: r.def.Name, Version: r.def.Version}
	for _, n := range r.def.Nodes {
		summary.NodeIDs = append(summary.NodeIDs, nodeSummary{ID: n.ID, Kind: string(n.Kind)})
	}
	for _, e := range r.def.Edges {
		summary.Edges = append(summary.Edges, edgeSummary{From: e.From, To: e.To})
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("runner: marshal definition: %w", err)
	}
	return r.persist.Save(ctx, r.definitionKey(), data)
}

// SaveState persists the runner's current lifecycle state and variables
// under "graph:<id>:state".
func (r *Runner) SaveState(ctx context.Context) error {
	if r.persist == nil {
		return fmt.Errorf("runner: no store configured")
	}
	r.varsMu.RLock()
	vars := make(map[string]any, len(r.vars))
	for k, v := range r.vars {
		vars[k] = v
	}
	r.varsMu.RUnlock()

	snap := stateSnapshot{
		State:     r.GetState().String(),
		Variables: vars,
		SavedAt:   time.Now().UnixMilli(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("runner: marshal state: %w", err)
	}
	return r.persist.Save(ctx, r.stateKey(), data)
}

// SaveCheckpoint persists a timestamped, independently addressable copy of
// the runner's current state under "graph:<id>:checkpoint:<ts>-<rand>"
// and returns the key it was saved under.
func (r *Runner) SaveCheckpoint(ctx context.Context) (string, error) {
	if r.persist == nil {
		return "", fmt.Errorf("runner: no store configured")
	}
	r.varsMu.RLock()
	vars := make(map[string]any, len(r.vars))
	for k, v := range r.vars {
		vars[k] = v
	}
	r.varsMu.RUnlock()

	snap := stateSnapshot{
		State:     r.GetState().String(),
		Variables: vars,
		SavedAt:   time.Now().UnixMilli(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("runner: marshal checkpoint: %w", err)
	}
	key := fmt.Sprintf("%s%d-%s", r.checkpointKeyPrefix(), snap.SavedAt, uuid.NewString()[:8])
	if err := r.persist.Save(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// ListCheckpoints returns every checkpoint key saved for this graph, oldest
// first (the store's List contract returns keys sorted lexicographically,
// which matches chronological order for this key's timestamp prefix).
func (r *Runner) ListCheckpoints(ctx context.Context) ([]string, error) {
	if r.persist == nil {
		return nil, fmt.Errorf("runner: no store configured")
	}
	return r.persist.List(ctx, r.checkpointKeyPrefix())
}
