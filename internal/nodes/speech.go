package nodes

import (
	"context"
	"fmt"

	"ai_receptionist/internal/core"
	"ai_receptionist/internal/speech"
)

// TranscriptionFailedReply is returned when caller audio cannot be turned into text
const TranscriptionFailedReply = "I'm sorry, I couldn't hear that clearly. Could you please say that again?"

// TranscribeNode turns inbound audio into the turn's message
type TranscribeNode struct {
	transcriber speech.Transcriber
}

// NewTranscribeNode creates a transcription node; a nil transcriber fails every audio turn softly
func NewTranscribeNode(transcriber speech.Transcriber) *TranscribeNode {
	return &TranscribeNode{transcriber: transcriber}
}

// Execute transcribes the audio. A failure ends the flow with a re-ask reply
// and leaves the session untouched.
func (n *TranscribeNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	if n.transcriber == nil {
		return transcriptionFailed(fmt.Errorf("speech transcription is not configured")), nil
	}

	text, err := n.transcriber.Transcribe(ctx, input.Audio, input.AudioFilename)
	if err != nil {
		return transcriptionFailed(err), nil
	}

	return core.NodeOutput{
		Data: map[string]any{core.KeyTranscript: text},
	}, nil
}

func transcriptionFailed(err error) core.NodeOutput {
	return core.NodeOutput{
		Data:     map[string]any{core.KeyReply: TranscriptionFailedReply},
		Error:    err,
		Complete: true,
	}
}

// GetName returns the node name
func (n *TranscribeNode) GetName() string {
	return core.TranscribeNode
}

// GetType returns the node type
func (n *TranscribeNode) GetType() core.NodeType {
	return core.NodeTypeTranscribe
}

// SynthesizeNode renders the reply as audio
type SynthesizeNode struct {
	synthesizer  speech.Synthesizer
	defaultVoice string
}

// NewSynthesizeNode creates a synthesis node using defaultVoice when the turn names none
func NewSynthesizeNode(synthesizer speech.Synthesizer, defaultVoice string) *SynthesizeNode {
	return &SynthesizeNode{synthesizer: synthesizer, defaultVoice: defaultVoice}
}

// Execute synthesizes the reply; on failure the text reply still goes out
func (n *SynthesizeNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	if input.Turn == nil {
		return core.NodeOutput{Complete: true}, nil
	}
	if n.synthesizer == nil {
		return core.NodeOutput{Error: fmt.Errorf("speech synthesis is not configured"), Complete: true}, nil
	}

	voice := input.Voice
	if voice == "" {
		voice = n.defaultVoice
	}

	audio, err := n.synthesizer.Synthesize(ctx, input.Turn.Reply, speech.NormalizeVoice(voice))
	if err != nil {
		return core.NodeOutput{Error: err, Complete: true}, nil
	}

	return core.NodeOutput{
		Data:     map[string]any{core.KeyAudio: audio},
		Complete: true,
	}, nil
}

// GetName returns the node name
func (n *SynthesizeNode) GetName() string {
	return core.SynthesizeNode
}

// GetType returns the node type
func (n *SynthesizeNode) GetType() core.NodeType {
	return core.NodeTypeSynthesize
}
