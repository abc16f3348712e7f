package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai_receptionist/internal/booking"
	"ai_receptionist/internal/dialogue"
	"ai_receptionist/internal/fallback"
	"ai_receptionist/internal/nlu"
	"ai_receptionist/internal/nodes"
	"ai_receptionist/internal/storage"
	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpeech struct {
	transcript string
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return f.transcript, nil
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return []byte("mp3:" + voice), nil
}

func newTestServer(t *testing.T) (*Server, *storage.JSONCallArchive) {
	t.Helper()
	profile := pkg.DefaultBusinessProfile()
	profile.Timezone = "UTC"

	engine := dialogue.NewEngine(
		storage.NewMemorySessionStore(),
		nlu.NewExtractor(nlu.WithServices(profile.Services)),
		fallback.NewResponder(nil, profile, 0),
		profile,
	)
	archive := storage.NewJSONCallArchive(t.TempDir())
	speech := &fakeSpeech{transcript: "Where are you located?"}

	pipeline, err := nodes.NewPipeline(nodes.PipelineDeps{
		Engine:       engine,
		Transcriber:  speech,
		Synthesizer:  speech,
		Archive:      archive,
		DefaultVoice: "alloy",
	})
	require.NoError(t, err)

	server := NewServer(Deps{
		Pipeline:       pipeline,
		Sessions:       engine,
		Availability:   booking.NewScheduler(booking.NewMemoryCalendar(), nil, profile),
		Archive:        archive,
		MaxUploadBytes: 1 << 10,
		Now:            func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) },
	})
	return server, archive
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	rec := do(t, server.Routes(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestTurnEndpoint(t *testing.T) {
	server, archive := newTestServer(t)
	handler := server.Routes()

	rec := do(t, handler, http.MethodPost, "/v1/turns", `{"session_id":"web-1","message":"What are your business hours?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var turn pkg.TurnResult
	decode(t, rec, &turn)
	assert.Equal(t, "web-1", turn.SessionID)
	assert.Equal(t, pkg.IntentBusinessHours, turn.Intent)
	assert.NotEmpty(t, turn.Reply)

	record, err := archive.GetCall(context.Background(), "web-1")
	require.NoError(t, err)
	assert.Len(t, record.History, 1)
}

func TestTurnEndpoint_MintsSessionID(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server.Routes(), http.MethodPost, "/v1/turns", `{"message":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var turn pkg.TurnResult
	decode(t, rec, &turn)
	assert.True(t, pkg.ValidSessionID(turn.SessionID))
}

func TestTurnEndpoint_BadRequests(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Routes()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"message":`},
		{"empty message", `{"message":"   "}`},
		{"invalid session id", `{"session_id":"../etc","message":"Hello"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/v1/turns", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSessionEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Routes()

	rec := do(t, handler, http.MethodGet, "/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, handler, http.MethodPost, "/v1/turns", `{"session_id":"s-1","message":"I want to book an appointment"}`)
	do(t, handler, http.MethodPost, "/v1/turns", `{"session_id":"s-1","message":"My name is Jane Roe"}`)

	rec = do(t, handler, http.MethodGet, "/v1/sessions/s-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info pkg.SessionInfo
	decode(t, rec, &info)
	assert.Equal(t, "s-1", info.SessionID)
	assert.Equal(t, pkg.PhaseCollectingInfo, info.Phase)
	assert.Equal(t, "Jane Roe", info.UserInfo.Name)
	assert.Equal(t, 2, info.ConversationLength)
}

func TestVoiceTurnEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("session_id", "voice-1"))
	require.NoError(t, form.WriteField("voice", "nova"))
	part, err := form.CreateFormFile("audio", "turn.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/voice/turns", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp voiceTurnResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Where are you located?", resp.Transcript)
	assert.Contains(t, resp.Response, "123 Main Street")
	require.NotNil(t, resp.Turn)
	assert.Equal(t, pkg.IntentLocation, resp.Turn.Intent)
	assert.Equal(t, "mp3", resp.AudioFormat)

	audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	require.NoError(t, err)
	assert.Equal(t, "mp3:nova", string(audio))
}

func TestVoiceTurnEndpoint_Rejects(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Routes()

	send := func(filename string, payload []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		form := multipart.NewWriter(&body)
		if filename != "" {
			part, err := form.CreateFormFile("audio", filename)
			require.NoError(t, err)
			_, err = part.Write(payload)
			require.NoError(t, err)
		}
		require.NoError(t, form.Close())
		req := httptest.NewRequest(http.MethodPost, "/v1/voice/turns", &body)
		req.Header.Set("Content-Type", form.FormDataContentType())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, send("", nil).Code)
	assert.Equal(t, http.StatusBadRequest, send("notes.txt", []byte("hi")).Code)
	assert.Equal(t, http.StatusBadRequest, send("empty.wav", nil).Code)

	rec := send("big.wav", bytes.Repeat([]byte("a"), 2<<10))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Routes()

	rec := do(t, handler, http.MethodGet, "/v1/availability?from=2024-03-07&to=2024-03-08", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		From  string     `json:"from"`
		Slots []pkg.Slot `json:"slots"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "2024-03-07", resp.From)
	assert.Len(t, resp.Slots, 16)
	assert.Equal(t, "09:00", resp.Slots[0].Time)

	rec = do(t, handler, http.MethodGet, "/v1/availability", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "2024-03-06", resp.From)

	rec = do(t, handler, http.MethodGet, "/v1/availability?from=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Routes()

	do(t, handler, http.MethodPost, "/v1/turns", `{"session_id":"call-1","message":"Hello"}`)
	do(t, handler, http.MethodPost, "/v1/turns", `{"session_id":"call-1","message":"Goodbye"}`)
	do(t, handler, http.MethodPost, "/v1/turns", `{"session_id":"call-2","message":"What are your business hours?"}`)

	rec := do(t, handler, http.MethodGet, "/v1/calls?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list callsResponse
	decode(t, rec, &list)
	assert.Len(t, list.Calls, 2)
	assert.Equal(t, 2, list.Stats.TotalCalls)
	assert.Equal(t, 1, list.Stats.CompletedCalls)

	rec = do(t, handler, http.MethodGet, "/v1/calls/call-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var record pkg.CallRecord
	decode(t, rec, &record)
	assert.Equal(t, pkg.CallCompleted, record.Status)

	assert.Equal(t, http.StatusNotFound, do(t, handler, http.MethodGet, "/v1/calls/nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, handler, http.MethodGet, "/v1/calls?limit=-1", "").Code)
}

func TestCallEndpoints_NoArchive(t *testing.T) {
	server := NewServer(Deps{})
	rec := do(t, server.Routes(), http.MethodGet, "/v1/calls", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestStream(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/ws-1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() streamFrame {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var frame streamFrame
		require.NoError(t, sonic.Unmarshal(data, &frame))
		return frame
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Hello"}`)))
	frame := read()
	require.NotNil(t, frame.Turn)
	assert.Equal(t, "ws-1", frame.Turn.SessionID)
	assert.Equal(t, pkg.IntentGreeting, frame.Turn.Intent)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	frame = read()
	assert.Nil(t, frame.Turn)
	assert.NotEmpty(t, frame.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Goodbye"}`)))
	frame = read()
	require.NotNil(t, frame.Turn)
	assert.Equal(t, pkg.PhaseCompleted, frame.Turn.Phase)
}

func TestStream_InvalidSession(t *testing.T) {
	server, _ := newTestServer(t)
	rec := do(t, server.Routes(), http.MethodGet, "/v1/sessions/bad%20id/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
