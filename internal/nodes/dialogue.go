package nodes

import (
	"context"

	"ai_receptionist/internal/core"
	"ai_receptionist/pkg"
)

// TurnProcessor is the dialogue engine as seen by the pipeline
type TurnProcessor interface {
	ProcessUtterance(ctx context.Context, text, sessionID string) (*pkg.TurnResult, error)
}

// DialogueNode runs the utterance through the dialogue engine
type DialogueNode struct {
	engine TurnProcessor
}

// NewDialogueNode creates the dialogue node
func NewDialogueNode(engine TurnProcessor) *DialogueNode {
	return &DialogueNode{engine: engine}
}

// Execute processes one turn. Engine errors (malformed input, storage,
// cancellation) are fatal for the pipeline.
func (n *DialogueNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	turn, err := n.engine.ProcessUtterance(ctx, input.Message, input.SessionID)
	if err != nil {
		return core.NodeOutput{}, err
	}

	return core.NodeOutput{
		Data: map[string]any{
			core.KeyTurn:  turn,
			core.KeyReply: turn.Reply,
		},
	}, nil
}

// GetName returns the node name
func (n *DialogueNode) GetName() string {
	return core.DialogueNode
}

// GetType returns the node type
func (n *DialogueNode) GetType() core.NodeType {
	return core.NodeTypeDialogue
}
