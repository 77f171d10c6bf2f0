package graph

import "testing"

func TestValidateRejectsMissingKindFields(t *testing.T) {
	d := &Definition{
		Nodes:  []NodeConfig{{ID: "t", Kind: NodeKindTransform}},
		Config: DefaultConfig(),
	}
	if err := Validate(d); err == nil {
		t.Fatal("expected error for transform node missing its function")
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	d := &Definition{
		Nodes:  []NodeConfig{{ID: "x", Kind: "bogus"}},
		Config: DefaultConfig(),
	}
	if err := Validate(d); err == nil {
		t.Fatal("expected error for unknown node kind")
	}
}

func TestValidateAcceptsDiamond(t *testing.T) {
	fn := func(p any, _ map[string]any) (any, error) { return p, nil }
	d := &Definition{
		Nodes: []NodeConfig{
			sourceNode("src"),
			transformNode("a", fn),
			transformNode("b", fn),
			sinkNode("out"),
		},
		Edges: []Edge{
			{From: "src", To: "a"},
			{From: "src", To: "b"},
			{From: "a", To: "out"},
			{From: "b", To: "out"},
		},
		Config: DefaultConfig(),
	}
	if err := Validate(d); err != nil {
		t.Fatalf("diamond graph should be a valid DAG: %v", err)
	}
}

func TestValidateDetectsSelfLoop(t *testing.T) {
	fn := func(p any, _ map[string]any) (any, error) { return p, nil }
	d := &Definition{
		Nodes:  []NodeConfig{transformNode("a", fn)},
		Edges:  []Edge{{From: "a", To: "a"}},
		Config: DefaultConfig(),
	}
	if err := Validate(d); err == nil {
		t.Fatal("expected self-loop to be detected as a cycle")
	}
}
