package types

import (
	"errors"
	"testing"
)

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr bool
	}{
		{
			name: "valid node",
			node: Node{
				ID:         "node-1",
				Type:       FactNodeType,
				Content:    "timestamps are stored in UTC",
				Confidence: 0.9,
			},
			wantErr: false,
		},
		{
			name: "empty id",
			node: Node{
				Type:       FactNodeType,
				Content:    "something",
				Confidence: 0.5,
			},
			wantErr: true,
		},
		{
			name: "empty content",
			node: Node{
				ID:         "node-2",
				Type:       FactNodeType,
				Confidence: 0.5,
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			node: Node{
				ID:         "node-3",
				Type:       NodeType("opinion"),
				Content:    "something",
				Confidence: 0.5,
			},
			wantErr: true,
		},
		{
			name: "confidence above one",
			node: Node{
				ID:         "node-4",
				Type:       FactNodeType,
				Content:    "something",
				Confidence: 1.2,
			},
			wantErr: true,
		},
		{
			name: "negative confidence",
			node: Node{
				ID:         "node-5",
				Type:       FactNodeType,
				Content:    "something",
				Confidence: -0.1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Node.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Node.Validate() error %v does not match ErrValidation", err)
			}
		})
	}
}

func TestDefaultConfidence(t *testing.T) {
	if got := DefaultConfidence(AssumptionNodeType); got != ConfidenceAssumptionDefault {
		t.Errorf("DefaultConfidence(assumption) = %v, want %v", got, ConfidenceAssumptionDefault)
	}
	for _, nt := range []NodeType{DecisionNodeType, FactNodeType, GuideNodeType} {
		if got := DefaultConfidence(nt); got != ConfidenceDefault {
			t.Errorf("DefaultConfidence(%s) = %v, want %v", nt, got, ConfidenceDefault)
		}
	}
}

func TestNodeApproved(t *testing.T) {
	n := Node{ID: "n", Type: FactNodeType, Content: "c", Confidence: 0.99}
	if n.Approved() {
		t.Error("node with confidence 0.99 must not be approved")
	}
	n.Confidence = ConfidenceApproved
	if !n.Approved() {
		t.Error("node with confidence 1.0 must be approved")
	}
}

func TestNeedsClarification(t *testing.T) {
	n := Node{ID: "n", Type: FactNodeType, Content: "c", Confidence: 0.5}
	if n.NeedsClarification() {
		t.Error("fresh node must not need clarification")
	}
	n.Metadata = map[string]interface{}{
		MetaKeyClarification: ClarificationRequest{NodeID: "n", Content: "c"},
	}
	if !n.NeedsClarification() {
		t.Error("node with clarification metadata must need clarification")
	}
}
