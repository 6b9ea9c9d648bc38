// Package tts provides the speech synthesizers used to voice image descriptions.
//
// GoogleClient talks to the Google Translate speech endpoint and returns MP3.
// HTTPClient talks to a standalone TTS service and returns WAV. OpenAIClient calls the
// OpenAI speech endpoint. All of them implement core.Synthesizer.
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

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
)

// Error messages.
const (
	errUnexpectedContentType   = "unexpected content type: expected audio/wav, got %s"
	errFmtServiceErrorWithCode = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "TTS service returned non-OK status: %s, body: %s"
)

// Static errors shared by the synthesizers.
var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrReceivedEmptyAudio = errors.New("received empty audio data")
)

// HTTPClient represents a client for the standalone TTS HTTP service.
// It encapsulates the HTTP configuration and provides methods for
// speech generation and health monitoring.
type HTTPClient struct {
	httpClient     *http.Client
	baseURL        string
	temperature    float64
	speakerRefPath string
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// BaseURL includes the protocol and port (e.g., "http://localhost:8000").
	BaseURL string
	// Timeout applies to all HTTP requests made by the client.
	Timeout time.Duration
	// Temperature is sent with every request; 0.0 is valid and deterministic.
	Temperature float64
	// SpeakerRefPath selects a server-side speaker reference; empty uses the default voice.
	SpeakerRefPath string
}

// TTSRequest defines the JSON payload structure for TTS generation requests.
type TTSRequest struct {
	// Text contains the input text to convert to speech.
	Text string `json:"text"`

	// SpeakerRefPath optionally specifies a server-side path to a speaker
	// reference file for voice cloning. If empty, default speaker is used.
	SpeakerRefPath string `json:"speaker_ref_path,omitempty"`

	// Language specifies the target language code (e.g., "en", "es").
	// Defaults to "en" if not specified.
	Language string `json:"language"`

	// Temperature controls randomness in speech generation. Nil selects the
	// default; an explicit 0.0 is sent as is.
	Temperature *float64 `json:"temperature"`
}

// TTSErrorResponse represents a structured error response from the TTS service.
type TTSErrorResponse struct {
	// Detail contains a human-readable error description.
	Detail string `json:"detail"`

	// ErrorCode provides a machine-readable error classification.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates and configures an HTTP client for the TTS service.
func NewHTTPClient(options HTTPOptions) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(options.BaseURL, "/"),
		temperature:    options.Temperature,
		speakerRefPath: options.SpeakerRefPath,
		httpClient: &http.Client{
			Timeout: options.Timeout,
		},
	}
}

// Synthesize implements core.Synthesizer on top of GenerateSpeech.
func (c *HTTPClient) Synthesize(ctx context.Context, text, language string) (audio.Clip, error) {
	temperature := c.temperature

	data, err := c.GenerateSpeech(ctx, TTSRequest{
		Text:           text,
		SpeakerRefPath: c.speakerRefPath,
		Language:       language,
		Temperature:    &temperature,
	})
	if err != nil {
		return audio.Clip{}, err
	}

	return audio.Clip{Data: data, Format: audio.FORMAT_WAV}, nil
}

// GenerateSpeech sends a TTS generation request and returns the raw audio data.
// The returned audio data is in WAV format as specified by the service contract.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextEmpty
	}

	if req.Temperature == nil {
		temperature := defaultTemperature
		req.Temperature = &temperature
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiGenerateSpeech

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to TTS service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	if audio.FormatFromContentType(resp.Header.Get(headerContentType)) != audio.FORMAT_WAV {
		return nil, fmt.Errorf(
			errUnexpectedContentType,
			resp.Header.Get(headerContentType),
		)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the TTS service is running and operational.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the service.
// If structured parsing fails, it falls back to returning the raw response body.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp TTSErrorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		string(body),
	)
}
