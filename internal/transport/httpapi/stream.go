package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"ai_receptionist/internal/core"
	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type streamRequest struct {
	Message string `json:"message"`
}

type streamFrame struct {
	Turn  *pkg.TurnResult `json:"turn,omitempty"`
	Error string          `json:"error,omitempty"`
}

const streamWriteWait = 10 * time.Second

// handleStream carries one session over a websocket. Each text frame
// {"message": ...} produces one turn frame in reply.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if !pkg.ValidSessionID(sessionID) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxTextBody)

	log := s.log.With().Str("session_id", sessionID).Logger()
	log.Info().Msg("Stream opened")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Stream closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			if !s.sendFrame(conn, streamFrame{Error: "only text frames are supported"}) {
				return
			}
			continue
		}

		var req streamRequest
		if err := sonic.Unmarshal(data, &req); err != nil || strings.TrimSpace(req.Message) == "" {
			if !s.sendFrame(conn, streamFrame{Error: "expected {\"message\": \"...\"}"}) {
				return
			}
			continue
		}

		out, err := s.deps.Pipeline.Execute(r.Context(), core.ProcessorInput{
			SessionID: sessionID,
			Message:   req.Message,
		})
		frame := streamFrame{}
		switch {
		case err != nil:
			if errors.Is(err, pkg.ErrMalformedInput) {
				frame.Error = err.Error()
			} else {
				log.Error().Err(err).Msg("Stream turn failed")
				frame.Error = http.StatusText(statusFor(err))
			}
		case out.Turn == nil:
			frame.Error = http.StatusText(http.StatusInternalServerError)
		default:
			frame.Turn = out.Turn
		}

		if !s.sendFrame(conn, frame) {
			return
		}
	}
}

func (s *Server) sendFrame(conn *websocket.Conn, frame streamFrame) bool {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode stream frame")
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write stream frame")
		return false
	}
	return true
}
