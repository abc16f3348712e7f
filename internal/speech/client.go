package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"ai_receptionist/internal/config"
	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// DefaultVoice is used when a requested voice is not offered
const DefaultVoice = "alloy"

// Voices offered by the synthesis API
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// audioTypes maps accepted upload extensions to their content types
var audioTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"mp4":  "audio/mp4",
	"mpeg": "audio/mpeg",
	"mpga": "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"webm": "audio/webm",
}

// ErrNoSpeech is returned when transcription yields no text
var ErrNoSpeech = errors.New("no speech detected")

// Transcriber converts caller audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer converts reply text to audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// NormalizeVoice returns the voice if offered, DefaultVoice otherwise
func NormalizeVoice(voice string) string {
	voice = strings.ToLower(strings.TrimSpace(voice))
	for _, v := range Voices {
		if v == voice {
			return v
		}
	}
	return DefaultVoice
}

// SupportedFormat reports whether the upload's extension can be transcribed
func SupportedFormat(filename string) bool {
	_, ok := audioTypes[extension(filename)]
	return ok
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Client talks to the OpenAI audio endpoints
type Client struct {
	api             openai.Client
	transcribeModel string
	synthesizeModel string
	timeout         time.Duration
	maxUpload       int64
	log             zerolog.Logger
}

// NewClient builds a client from config. An empty API key is an error so
// callers can run text-only.
func NewClient(cfg config.SpeechConfig, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech API key is not configured")
	}

	baseURL := cfg.BaseURL
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	options = append(options, opts...)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = string(openai.AudioModelWhisper1)
	}
	synthesizeModel := cfg.SynthesizeModel
	if synthesizeModel == "" {
		synthesizeModel = string(openai.SpeechModelTTS1)
	}

	return &Client{
		api:             openai.NewClient(options...),
		transcribeModel: transcribeModel,
		synthesizeModel: synthesizeModel,
		timeout:         timeout,
		maxUpload:       cfg.MaxUploadBytes,
		log:             logger.With("speech"),
	}, nil
}

// Transcribe sends audio to the transcription endpoint
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: audio is empty", pkg.ErrMalformedInput)
	}
	contentType, ok := audioTypes[extension(filename)]
	if !ok {
		return "", fmt.Errorf("%w: unsupported audio format %q", pkg.ErrMalformedInput, filepath.Ext(filename))
	}
	if c.maxUpload > 0 && int64(len(audio)) > c.maxUpload {
		return "", fmt.Errorf("%w: audio exceeds %d bytes", pkg.ErrMalformedInput, c.maxUpload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	transcription, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filepath.Base(filename), contentType),
		Model: openai.AudioModel(c.transcribeModel),
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription failed: %v", pkg.ErrCollaboratorUnavailable, err)
	}

	text := strings.TrimSpace(transcription.Text)
	c.log.Debug().
		Int("audio_bytes", len(audio)).
		Int("text_length", len(text)).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("Audio transcribed")

	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Synthesize renders text as mp3 audio in the requested voice
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: nothing to synthesize", pkg.ErrMalformedInput)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.synthesizeModel),
		Voice:          openai.AudioSpeechNewParamsVoice(NormalizeVoice(voice)),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: synthesis failed: %v", pkg.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading synthesized audio: %v", pkg.ErrCollaboratorUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: synthesis returned no audio", pkg.ErrCollaboratorUnavailable)
	}

	c.log.Debug().
		Int("text_length", len(text)).
		Int("audio_bytes", len(audio)).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("Speech synthesized")
	return audio, nil
}
