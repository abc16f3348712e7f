package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/rs/zerolog"
)

// DefaultGraphProcessor implements the GraphProcessor interface
type DefaultGraphProcessor struct {
	nodes map[string]Node
	flow  GraphFlow
	log   zerolog.Logger
}

// NewGraphProcessor creates a processor running the given flow
func NewGraphProcessor(flow GraphFlow) *DefaultGraphProcessor {
	return &DefaultGraphProcessor{
		nodes: make(map[string]Node),
		flow:  flow,
		log:   logger.With("pipeline"),
	}
}

// Execute runs the flow for one turn. Node errors are fatal; NodeOutput.Error
// is collected into the output metadata and the flow continues.
func (g *DefaultGraphProcessor) Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error) {
	startTime := time.Now()

	nodeInput := NodeInput{
		SessionID:     input.SessionID,
		Message:       input.Message,
		Audio:         input.Audio,
		AudioFilename: input.AudioFilename,
		Voice:         input.Voice,
		Metadata:      make(map[string]any),
	}
	output := &ProcessorOutput{Metadata: make(map[string]any)}

	// conditions are evaluated against everything produced so far
	state := map[string]any{
		KeyHasAudio:  len(input.Audio) > 0,
		KeyWantAudio: input.WantAudio,
	}

	currentNode := g.flow.StartNode
	if _, registered := g.nodes[currentNode]; !registered {
		currentNode = g.getNextNode(currentNode, state)
	}

	var executionPath []string
	for currentNode != "" && currentNode != CompleteNode {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		executionPath = append(executionPath, currentNode)

		node, exists := g.nodes[currentNode]
		if !exists {
			return nil, fmt.Errorf("node not found: %s", currentNode)
		}

		nodeOutput, err := node.Execute(ctx, nodeInput)
		if err != nil {
			g.log.Warn().Err(err).Str("node", currentNode).Str("session_id", nodeInput.SessionID).Msg("Node failed")
			return nil, fmt.Errorf("error executing node %s: %w", currentNode, err)
		}

		if nodeOutput.Error != nil {
			g.log.Warn().Err(nodeOutput.Error).Str("node", currentNode).Str("session_id", nodeInput.SessionID).Msg("Node degraded")
			output.Metadata["errors"] = append(getStringSlice(output.Metadata, "errors"), nodeOutput.Error.Error())
		}

		g.processNodeOutput(currentNode, nodeOutput, output, &nodeInput)
		for key, value := range nodeOutput.Data {
			state[key] = value
		}

		if nodeOutput.Complete {
			break
		}

		nextNode := nodeOutput.NextNode
		if nextNode == "" {
			nextNode = g.getNextNode(currentNode, state)
		}
		currentNode = nextNode
	}

	processingTime := time.Since(startTime)
	output.ProcessingTime = processingTime.Milliseconds()
	output.Metadata["execution_path"] = executionPath

	g.log.Debug().
		Str("session_id", nodeInput.SessionID).
		Strs("path", executionPath).
		Int64("duration_ms", output.ProcessingTime).
		Msg("Pipeline completed")

	return output, nil
}

// AddNode adds a node to the processor
func (g *DefaultGraphProcessor) AddNode(node Node) error {
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	nodeName := node.GetName()
	if nodeName == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	g.nodes[nodeName] = node
	return nil
}

// GetNode retrieves a node by name
func (g *DefaultGraphProcessor) GetNode(name string) (Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node not found: %s", name)
	}
	return node, nil
}

// SetFlow sets the execution flow
func (g *DefaultGraphProcessor) SetFlow(flow GraphFlow) error {
	if flow.StartNode == "" {
		return fmt.Errorf("start node cannot be empty")
	}
	g.flow = flow
	return nil
}

// processNodeOutput copies node data into the pipeline output and the next node's input
func (g *DefaultGraphProcessor) processNodeOutput(nodeName string, nodeOutput NodeOutput, out *ProcessorOutput, nodeInput *NodeInput) {
	for key, value := range nodeOutput.Data {
		switch key {
		case KeyTranscript:
			if transcript, ok := value.(string); ok {
				out.Transcript = transcript
				nodeInput.Message = transcript
			}
		case KeyTurn:
			if turn, ok := value.(*pkg.TurnResult); ok {
				out.Turn = turn
				nodeInput.Turn = turn
				nodeInput.SessionID = turn.SessionID
			}
		case KeyReply:
			if reply, ok := value.(string); ok {
				out.Reply = reply
			}
		case KeyAudio:
			if audio, ok := value.([]byte); ok {
				out.Audio = audio
			}
		case KeyCallRecorded:
			if recorded, ok := value.(bool); ok {
				out.CallRecorded = recorded
			}
		default:
			out.Metadata[fmt.Sprintf("%s_%s", nodeName, key)] = value
			nodeInput.Metadata[key] = value
		}
	}
}

// getNextNode picks the first edge, by priority, whose condition holds
func (g *DefaultGraphProcessor) getNextNode(currentNode string, state map[string]any) string {
	edges, exists := g.flow.Edges[currentNode]
	if !exists || len(edges) == 0 {
		return CompleteNode
	}

	sorted := make([]GraphEdge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	for _, edge := range sorted {
		if evaluateCondition(edge.Condition, state) {
			return edge.To
		}
	}
	return CompleteNode
}

func evaluateCondition(condition map[string]any, state map[string]any) bool {
	for key, expected := range condition {
		actual, exists := state[key]
		if !exists || actual != expected {
			return false
		}
	}
	return true
}

func getStringSlice(metadata map[string]any, key string) []string {
	if value, exists := metadata[key]; exists {
		if slice, ok := value.([]string); ok {
			return slice
		}
	}
	return []string{}
}
