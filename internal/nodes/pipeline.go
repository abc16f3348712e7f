package nodes

import (
	"ai_receptionist/internal/core"
	"ai_receptionist/internal/events"
	"ai_receptionist/internal/speech"
	"ai_receptionist/internal/storage"
)

// Engine is what the pipeline needs from the dialogue engine
type Engine interface {
	TurnProcessor
	SessionReader
}

// PipelineDeps are the collaborators wired into the default flow. Nil
// speech collaborators make audio turns degrade to text.
type PipelineDeps struct {
	Engine       Engine
	Transcriber  speech.Transcriber
	Synthesizer  speech.Synthesizer
	Archive      storage.CallArchive
	Publisher    events.Publisher
	DefaultVoice string
}

// NewPipeline builds the turn pipeline over the default flow
func NewPipeline(deps PipelineDeps) (*core.DefaultGraphProcessor, error) {
	processor := core.NewGraphProcessor(core.DefaultFlow())

	for _, node := range []core.Node{
		NewTranscribeNode(deps.Transcriber),
		NewDialogueNode(deps.Engine),
		NewRecordNode(deps.Engine, deps.Archive, deps.Publisher),
		NewSynthesizeNode(deps.Synthesizer, deps.DefaultVoice),
	} {
		if err := processor.AddNode(node); err != nil {
			return nil, err
		}
	}
	return processor, nil
}
