package httpapi

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ai_receptionist/internal/booking"
	"ai_receptionist/internal/core"
	"ai_receptionist/internal/speech"
	"ai_receptionist/internal/storage"
	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
)

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type voiceTurnResponse struct {
	Transcript  string          `json:"transcript"`
	Response    string          `json:"response"`
	Turn        *pkg.TurnResult `json:"turn,omitempty"`
	AudioBase64 string          `json:"audio_base64,omitempty"`
	AudioFormat string          `json:"audio_format,omitempty"`
}

type callsResponse struct {
	Calls []pkg.CallRecord `json:"calls"`
	Stats storage.CallStats `json:"stats"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTextBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req turnRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	out, err := s.deps.Pipeline.Execute(r.Context(), core.ProcessorInput{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if out.Turn == nil {
		s.writeFailure(w, r, fmt.Errorf("pipeline produced no turn"))
		return
	}

	writeJSON(w, http.StatusOK, out.Turn)
}

func (s *Server) handleVoiceTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	if !speech.SupportedFormat(header.Filename) {
		writeError(w, http.StatusBadRequest, "unsupported audio format")
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, s.deps.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio")
		return
	}
	if int64(len(audio)) > s.deps.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio file too large")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	wantAudio := true
	if raw := r.FormValue("audio_response"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			wantAudio = parsed
		}
	}

	out, err := s.deps.Pipeline.Execute(r.Context(), core.ProcessorInput{
		SessionID:     r.FormValue("session_id"),
		Audio:         audio,
		AudioFilename: header.Filename,
		Voice:         r.FormValue("voice"),
		WantAudio:     wantAudio,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	resp := voiceTurnResponse{
		Transcript: out.Transcript,
		Response:   out.Reply,
		Turn:       out.Turn,
	}
	if len(out.Audio) > 0 {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(out.Audio)
		resp.AudioFormat = "mp3"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Sessions.SessionInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if s.deps.Availability == nil {
		writeError(w, http.StatusNotImplemented, "calendar is not configured")
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = s.deps.Now().Format("2006-01-02")
	}

	outcome, err := s.deps.Availability.CheckAvailability(r.Context(), booking.AvailabilityRequest{From: from, To: to})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !outcome.Success {
		status := http.StatusBadRequest
		if outcome.Reason == booking.ReasonUnavailable {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, outcome.Message)
		return
	}

	slots := outcome.Slots
	if r.URL.Query().Get("all") != "true" {
		open := make([]pkg.Slot, 0, len(slots))
		for _, slot := range slots {
			if slot.Available {
				open = append(open, slot)
			}
		}
		slots = open
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "slots": slots})
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil {
		writeError(w, http.StatusNotImplemented, "call archive is not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	calls, err := s.deps.Archive.ListCalls(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if calls == nil {
		calls = []pkg.CallRecord{}
	}
	writeJSON(w, http.StatusOK, callsResponse{Calls: calls, Stats: storage.SummarizeCalls(calls, 3)})
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil {
		writeError(w, http.StatusNotImplemented, "call archive is not configured")
		return
	}

	record, err := s.deps.Archive.GetCall(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
