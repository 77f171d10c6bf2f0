package graph

import "github.com/google/uuid"

// Builder provides a fluent API for assembling a Definition. Each method
// returns the Builder itself for chaining; structural mistakes are
// recorded and surfaced once, at Build().
type Builder struct {
	def Definition
	err error
}

// NewBuilder starts a new graph assembly under the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		def: Definition{
			ID:      uuid.NewString(),
			Name:    name,
			Version: "1",
			Config:  DefaultConfig(),
		},
	}
}

// Description accepts a human-readable graph description and discards it:
// it is a no-op setter, since Definition carries no description field,
// matching spec's GraphDefinition shape of {id,name,version,nodes,edges,config}.
func (b *Builder) Description(_ string) *Builder {
	return b
}

// Node appends a node configuration to the graph.
func (b *Builder) Node(cfg NodeConfig) *Builder {
	if cfg.ID == "" {
		b.fail(NewValidationError("node id must not be empty", nil))
		return b
	}
	b.def.Nodes = append(b.def.Nodes, cfg)
	return b
}

// Connect adds a directed edge between two existing node ids, optionally
// decorated with a predicate.
func (b *Builder) Connect(from, to string, predicate EdgePredicate) *Builder {
	b.def.Edges = append(b.def.Edges, Edge{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Predicate: predicate,
	})
	return b
}

// ConnectMapped adds a directed edge decorated with a mapper (and
// optionally a predicate), for callers that need both in one call.
func (b *Builder) ConnectMapped(from, to string, predicate EdgePredicate, mapper EdgeMapper) *Builder {
	b.def.Edges = append(b.def.Edges, Edge{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Predicate: predicate,
		Mapper:    mapper,
	})
	return b
}

// Flow connects a sequence of node ids linearly: ids[0]->ids[1]->...->ids[n-1].
func (b *Builder) Flow(ids ...string) *Builder {
	for i := 0; i+1 < len(ids); i++ {
		b.Connect(ids[i], ids[i+1], nil)
	}
	return b
}

// Branch connects a single source node to every target, fanning out.
func (b *Builder) Branch(from string, targets ...string) *Builder {
	for _, to := range targets {
		b.Connect(from, to, nil)
	}
	return b
}

// Merge connects every source node to a single target, fanning in.
func (b *Builder) Merge(sources []string, to string) *Builder {
	for _, from := range sources {
		b.Connect(from, to, nil)
	}
	return b
}

// Config sets the graph-wide runtime options, normalizing unset fields to
// their documented defaults.
func (b *Builder) Config(cfg Config) *Builder {
	b.def.Config = cfg.normalize()
	return b
}

// Build validates the accumulated graph and returns the finished
// Definition, or the first structural error encountered (either recorded
// during assembly or found during validation).
func (b *Builder) Build() (*Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.def.Config.BufferStrategy == "" {
		b.def.Config = b.def.Config.normalize()
	}
	if err := Validate(&b.def); err != nil {
		return nil, err
	}
	return &b.def, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
