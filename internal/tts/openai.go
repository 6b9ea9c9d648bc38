package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/visionvoice/internal/tts/audio"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// ErrAPIKeyMissing is returned when the OpenAI engine has no API key.
var ErrAPIKeyMissing = errors.New("openai api key is not set")

// OpenAIOptions configures an OpenAIClient.
type OpenAIOptions struct {
	URL     string
	Token   string
	Model   string
	Voice   string
	Speed   float64
	Format  audio.Format
	Timeout time.Duration
}

// OpenAIClient synthesizes speech through the OpenAI audio speech endpoint.
// The model detects the language from the text, so the language argument of
// Synthesize is not sent.
type OpenAIClient struct {
	httpClient *http.Client
	options    OpenAIOptions
}

type openAISpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
}

// NewOpenAIClient creates an OpenAI speech client.
func NewOpenAIClient(options OpenAIOptions) *OpenAIClient {
	if options.Format == audio.FORMAT_UNKNOWN {
		options.Format = audio.FORMAT_MP3
	}

	return &OpenAIClient{
		options: options,
		httpClient: &http.Client{
			Timeout: options.Timeout,
		},
	}
}

// Synthesize implements core.Synthesizer.
func (o *OpenAIClient) Synthesize(ctx context.Context, text, _ string) (audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Clip{}, ErrTextEmpty
	}

	if o.options.Token == "" {
		return audio.Clip{}, ErrAPIKeyMissing
	}

	payload, err := json.Marshal(openAISpeechRequest{
		Model:          o.options.Model,
		Input:          text,
		Voice:          o.options.Voice,
		Speed:          o.options.Speed,
		ResponseFormat: string(o.options.Format),
	})
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.options.URL, bytes.NewReader(payload))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAuthorization, bearerPrefix+o.options.Token)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("openai speech endpoint returned %s: %s",
			resp.Status, body[:min(len(body), maxErrorBodyBytes)])
	}

	if len(body) == 0 {
		return audio.Clip{}, ErrReceivedEmptyAudio
	}

	return audio.Clip{Data: body, Format: o.options.Format}, nil
}
