package core

import (
	"context"
	"errors"
	"testing"

	"ai_receptionist/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNode struct {
	name   string
	output NodeOutput
	err    error
	seen   []NodeInput
}

func (s *stubNode) Execute(ctx context.Context, input NodeInput) (NodeOutput, error) {
	s.seen = append(s.seen, input)
	return s.output, s.err
}

func (s *stubNode) GetName() string   { return s.name }
func (s *stubNode) GetType() NodeType { return NodeType(s.name) }

type stubs struct {
	transcribe, dialogue, record, synthesize *stubNode
}

func newStubProcessor(t *testing.T) (*DefaultGraphProcessor, *stubs) {
	t.Helper()
	s := &stubs{
		transcribe: &stubNode{name: TranscribeNode, output: NodeOutput{Data: map[string]any{KeyTranscript: "hello there"}}},
		dialogue: &stubNode{name: DialogueNode, output: NodeOutput{Data: map[string]any{
			KeyTurn:  &pkg.TurnResult{SessionID: "minted", Reply: "Hi!"},
			KeyReply: "Hi!",
		}}},
		record:     &stubNode{name: RecordNode, output: NodeOutput{Data: map[string]any{KeyCallRecorded: true}}},
		synthesize: &stubNode{name: SynthesizeNode, output: NodeOutput{Data: map[string]any{KeyAudio: []byte("mp3")}}},
	}

	processor := NewGraphProcessor(DefaultFlow())
	for _, node := range []Node{s.transcribe, s.dialogue, s.record, s.synthesize} {
		require.NoError(t, processor.AddNode(node))
	}
	return processor, s
}

func TestExecute_TextFlow(t *testing.T) {
	processor, s := newStubProcessor(t)

	out, err := processor.Execute(context.Background(), ProcessorInput{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{DialogueNode, RecordNode}, out.Metadata["execution_path"])
	assert.Equal(t, "Hi!", out.Reply)
	assert.True(t, out.CallRecorded)
	assert.Nil(t, out.Audio)
	assert.Empty(t, s.transcribe.seen)

	// later nodes see the turn and the minted session id
	require.Len(t, s.record.seen, 1)
	assert.Equal(t, "minted", s.record.seen[0].SessionID)
	require.NotNil(t, s.record.seen[0].Turn)
}

func TestExecute_AudioFlow(t *testing.T) {
	processor, s := newStubProcessor(t)

	out, err := processor.Execute(context.Background(), ProcessorInput{Audio: []byte("wav"), WantAudio: true})
	require.NoError(t, err)
	assert.Equal(t, []string{TranscribeNode, DialogueNode, RecordNode, SynthesizeNode}, out.Metadata["execution_path"])
	assert.Equal(t, "hello there", out.Transcript)
	assert.Equal(t, []byte("mp3"), out.Audio)

	require.Len(t, s.dialogue.seen, 1)
	assert.Equal(t, "hello there", s.dialogue.seen[0].Message)
}

func TestExecute_CompleteStopsFlow(t *testing.T) {
	processor, s := newStubProcessor(t)
	s.transcribe.output = NodeOutput{
		Data:     map[string]any{KeyReply: "Sorry, I didn't catch that."},
		Error:    errors.New("no speech"),
		Complete: true,
	}

	out, err := processor.Execute(context.Background(), ProcessorInput{Audio: []byte("wav")})
	require.NoError(t, err)
	assert.Equal(t, []string{TranscribeNode}, out.Metadata["execution_path"])
	assert.Equal(t, []string{"no speech"}, out.Metadata["errors"])
	assert.Equal(t, "Sorry, I didn't catch that.", out.Reply)
	assert.Empty(t, s.dialogue.seen)
}

func TestExecute_NodeErrorIsFatal(t *testing.T) {
	processor, s := newStubProcessor(t)
	s.dialogue.err = pkg.ErrMalformedInput

	out, err := processor.Execute(context.Background(), ProcessorInput{Message: " "})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, pkg.ErrMalformedInput)
	assert.Empty(t, s.record.seen)
}

func TestExecute_CancelledContext(t *testing.T) {
	processor, _ := newStubProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := processor.Execute(ctx, ProcessorInput{Message: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_UnknownMetadataIsForwarded(t *testing.T) {
	processor, s := newStubProcessor(t)
	s.dialogue.output.Data["escalated"] = true

	out, err := processor.Execute(context.Background(), ProcessorInput{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, true, out.Metadata["dialogue_escalated"])
	assert.Equal(t, true, s.record.seen[0].Metadata["escalated"])
}

func TestExecute_MissingNode(t *testing.T) {
	processor := NewGraphProcessor(DefaultFlow())

	_, err := processor.Execute(context.Background(), ProcessorInput{Message: "hello"})
	assert.ErrorContains(t, err, "node not found: dialogue")
}

func TestAddNodeAndSetFlow(t *testing.T) {
	processor := NewGraphProcessor(DefaultFlow())
	assert.Error(t, processor.AddNode(nil))
	assert.Error(t, processor.AddNode(&stubNode{}))
	assert.Error(t, processor.SetFlow(GraphFlow{}))

	node := &stubNode{name: "only"}
	require.NoError(t, processor.AddNode(node))
	got, err := processor.GetNode("only")
	require.NoError(t, err)
	assert.Same(t, node, got)

	_, err = processor.GetNode("missing")
	assert.Error(t, err)
}

func TestGetNextNode_Priority(t *testing.T) {
	processor := NewGraphProcessor(GraphFlow{
		StartNode: "a",
		Edges: map[string][]GraphEdge{
			"a": {
				{To: "low", Priority: 5},
				{To: "high", Condition: map[string]any{"flag": true}, Priority: 1},
			},
		},
	})

	assert.Equal(t, "high", processor.getNextNode("a", map[string]any{"flag": true}))
	assert.Equal(t, "low", processor.getNextNode("a", map[string]any{"flag": false}))
	assert.Equal(t, CompleteNode, processor.getNextNode("b", nil))
}
