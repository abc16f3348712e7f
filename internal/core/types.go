package core

import (
	"context"

	"ai_receptionist/pkg"
)

// Node represents a single processing unit in the turn pipeline
type Node interface {
	Execute(ctx context.Context, input NodeInput) (NodeOutput, error)
	GetName() string
	GetType() NodeType
}

// NodeType defines the different types of nodes in the pipeline
type NodeType string

const (
	NodeTypeTranscribe NodeType = "transcribe"
	NodeTypeDialogue   NodeType = "dialogue"
	NodeTypeRecord     NodeType = "record"
	NodeTypeSynthesize NodeType = "synthesize"
)

// Node names used by the default flow
const (
	StartNode      = "start"
	CompleteNode   = "complete"
	TranscribeNode = "transcribe"
	DialogueNode   = "dialogue"
	RecordNode     = "record"
	SynthesizeNode = "synthesize"
)

// Keys nodes use in NodeOutput.Data
const (
	KeyTranscript   = "transcript"
	KeyTurn         = "turn"
	KeyReply        = "reply"
	KeyAudio        = "audio"
	KeyCallRecorded = "call_recorded"
	KeyHasAudio     = "has_audio"
	KeyWantAudio    = "want_audio"
)

// NodeInput is what every node sees; earlier nodes fill in later fields
type NodeInput struct {
	SessionID     string          `json:"session_id"`
	Message       string          `json:"message"`
	Audio         []byte          `json:"-"`
	AudioFilename string          `json:"audio_filename,omitempty"`
	Voice         string          `json:"voice,omitempty"`
	Turn          *pkg.TurnResult `json:"turn,omitempty"`
	Metadata      map[string]any  `json:"metadata"`
}

// NodeOutput contains the output data from a node
type NodeOutput struct {
	Data     map[string]any `json:"data"`
	NextNode string         `json:"next_node,omitempty"`
	Error    error          `json:"error,omitempty"` // non-fatal
	Complete bool           `json:"complete"`
}

// GraphProcessor orchestrates the execution of nodes in a graph flow
type GraphProcessor interface {
	Execute(ctx context.Context, input ProcessorInput) (*ProcessorOutput, error)
	AddNode(node Node) error
	GetNode(name string) (Node, error)
	SetFlow(flow GraphFlow) error
}

// ProcessorInput is one inbound turn, text or audio
type ProcessorInput struct {
	SessionID     string `json:"session_id"`
	Message       string `json:"message"`
	Audio         []byte `json:"-"`
	AudioFilename string `json:"audio_filename,omitempty"`
	Voice         string `json:"voice,omitempty"`
	WantAudio     bool   `json:"want_audio"`
}

// ProcessorOutput is the pipeline result
type ProcessorOutput struct {
	Transcript     string          `json:"transcript,omitempty"`
	Turn           *pkg.TurnResult `json:"turn,omitempty"`
	Reply          string          `json:"response"`
	Audio          []byte          `json:"-"`
	CallRecorded   bool            `json:"call_recorded"`
	ProcessingTime int64           `json:"processing_time_ms"`
	Metadata       map[string]any  `json:"metadata"`
}

// GraphFlow defines the execution flow between nodes
type GraphFlow struct {
	StartNode string                 `json:"start_node"`
	Edges     map[string][]GraphEdge `json:"edges"` // node_name -> possible next nodes
}

// GraphEdge represents a connection between two nodes with conditions
type GraphEdge struct {
	To        string         `json:"to"`
	Condition map[string]any `json:"condition,omitempty"`
	Priority  int            `json:"priority"`
}

// DefaultFlow is transcribe (audio only) -> dialogue -> record -> synthesize (audio replies only)
func DefaultFlow() GraphFlow {
	return GraphFlow{
		StartNode: StartNode,
		Edges: map[string][]GraphEdge{
			StartNode: {
				{To: TranscribeNode, Condition: map[string]any{KeyHasAudio: true}, Priority: 0},
				{To: DialogueNode, Priority: 1},
			},
			TranscribeNode: {{To: DialogueNode}},
			DialogueNode:   {{To: RecordNode}},
			RecordNode: {
				{To: SynthesizeNode, Condition: map[string]any{KeyWantAudio: true}, Priority: 0},
				{To: CompleteNode, Priority: 1},
			},
		},
	}
}
