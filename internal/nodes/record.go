package nodes

import (
	"context"
	"fmt"

	"ai_receptionist/internal/core"
	"ai_receptionist/internal/events"
	"ai_receptionist/internal/storage"
	"ai_receptionist/pkg"
)

// SessionReader loads the committed state of a session
type SessionReader interface {
	Session(ctx context.Context, sessionID string) (*pkg.DialogueState, error)
}

// RecordNode mirrors the session into the call archive after every turn
type RecordNode struct {
	sessions  SessionReader
	archive   storage.CallArchive
	publisher events.Publisher
}

// NewRecordNode creates the record node. A nil archive skips persistence.
func NewRecordNode(sessions SessionReader, archive storage.CallArchive, publisher events.Publisher) *RecordNode {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RecordNode{sessions: sessions, archive: archive, publisher: publisher}
}

// Execute upserts the call record. It never fails the turn.
func (n *RecordNode) Execute(ctx context.Context, input core.NodeInput) (core.NodeOutput, error) {
	if n.archive == nil || input.Turn == nil {
		return core.NodeOutput{Data: map[string]any{core.KeyCallRecorded: false}}, nil
	}

	state, err := n.sessions.Session(ctx, input.Turn.SessionID)
	if err != nil {
		return recordFailed(fmt.Errorf("failed to load session for call record: %w", err)), nil
	}

	record := pkg.CallRecordFromState(state)
	if err := n.archive.RecordCall(ctx, record); err != nil {
		return recordFailed(fmt.Errorf("failed to record call: %w", err)), nil
	}

	// only the turn that ends the call announces it
	if record.Status == pkg.CallCompleted && input.Turn.Intent == pkg.IntentGoodbye {
		event := events.NewEvent(events.CallCompleted, record.SessionID, map[string]any{
			"primary_intent":     string(record.PrimaryIntent),
			"appointment_booked": record.AppointmentBooked,
			"booking_reference":  record.BookingReference,
			"duration_seconds":   record.DurationSeconds,
			"turns":              len(record.History),
		})
		if err := n.publisher.Publish(ctx, event); err != nil {
			return core.NodeOutput{
				Data:  map[string]any{core.KeyCallRecorded: true},
				Error: fmt.Errorf("failed to publish call event: %w", err),
			}, nil
		}
	}

	return core.NodeOutput{Data: map[string]any{core.KeyCallRecorded: true}}, nil
}

func recordFailed(err error) core.NodeOutput {
	return core.NodeOutput{
		Data:  map[string]any{core.KeyCallRecorded: false},
		Error: err,
	}
}

// GetName returns the node name
func (n *RecordNode) GetName() string {
	return core.RecordNode
}

// GetType returns the node type
func (n *RecordNode) GetType() core.NodeType {
	return core.NodeTypeRecord
}
