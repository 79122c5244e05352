package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Tradeflow/internal/domain"
)

func wf(nodes []domain.Node, edges []domain.Edge) *domain.Workflow {
	return &domain.Workflow{
		ID:    uuid.New(),
		Name:  "test",
		Nodes: nodes,
		Edges: edges,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		wf      *domain.Workflow
		wantErr error
	}{
		{
			name: "корректный граф",
			wf: wf(
				[]domain.Node{
					{ID: "start", Type: domain.NodeStart},
					{ID: "cond", Type: domain.NodePriceCondition},
					{ID: "buy", Type: domain.NodePlaceOrder},
				},
				[]domain.Edge{
					{From: "start", To: "cond"},
					{From: "cond", FromHandle: "yes", To: "buy"},
				},
			),
			wantErr: nil,
		},
		{
			name:    "пустой граф",
			wf:      wf(nil, nil),
			wantErr: ErrEmptyNodes,
		},
		{
			name: "узел без ID",
			wf: wf(
				[]domain.Node{{ID: "", Type: domain.NodeStart}},
				nil,
			),
			wantErr: ErrEmptyNodeID,
		},
		{
			name: "дубликат ID",
			wf: wf(
				[]domain.Node{
					{ID: "a", Type: domain.NodeStart},
					{ID: "a", Type: domain.NodeLog},
				},
				nil,
			),
			wantErr: ErrDuplicateNodeID,
		},
		{
			name: "неизвестный тип узла",
			wf: wf(
				[]domain.Node{
					{ID: "start", Type: domain.NodeStart},
					{ID: "x", Type: domain.NodeType("teleport")},
				},
				nil,
			),
			wantErr: ErrUnknownNodeType,
		},
		{
			name: "висячее ребро from",
			wf: wf(
				[]domain.Node{{ID: "start", Type: domain.NodeStart}},
				[]domain.Edge{{From: "ghost", To: "start"}},
			),
			wantErr: ErrDanglingEdge,
		},
		{
			name: "висячее ребро to",
			wf: wf(
				[]domain.Node{{ID: "start", Type: domain.NodeStart}},
				[]domain.Edge{{From: "start", To: "ghost"}},
			),
			wantErr: ErrDanglingEdge,
		},
		{
			name: "нет триггера",
			wf: wf(
				[]domain.Node{{ID: "log", Type: domain.NodeLog}},
				nil,
			),
			wantErr: ErrNoTrigger,
		},
		{
			name: "два триггера",
			wf: wf(
				[]domain.Node{
					{ID: "s1", Type: domain.NodeStart},
					{ID: "s2", Type: domain.NodeWebhook},
				},
				nil,
			),
			wantErr: ErrMultipleTriggers,
		},
		{
			name: "цикл легален",
			wf: wf(
				[]domain.Node{
					{ID: "start", Type: domain.NodeStart},
					{ID: "a", Type: domain.NodeLog},
					{ID: "b", Type: domain.NodeDelay},
				},
				[]domain.Edge{
					{From: "start", To: "a"},
					{From: "a", To: "b"},
					{From: "b", To: "a"},
				},
			),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.wf)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is not *ValidationError: %T", err)
			}
		})
	}
}
