// Package caption turns images into short natural-language captions using a
// hosted vision-language model.
//
// HFClient calls the Hugging Face inference API for an image-to-text model such as
// BLIP. The image is downscaled and re-encoded as JPEG before upload; the model does
// its own resizing, so sending full-resolution uploads only costs bandwidth.
package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/book-expert/logger"
)

// HTTP headers.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJPEG     = "image/jpeg"
	bearerPrefix        = "Bearer "
)

// Error messages.
const (
	errFmtNonOKStatus   = "captioning API returned %d: %s"
	errFmtRequestFailed = "cannot reach captioning API: %w"
	logFmtAttempt       = "Captioning response (attempt %d/%d): %d"
	logFmtModelLoading  = "Captioning model loading, waiting %s before retry"
	logFmtSendingImage  = "Sending %dKB to captioning API"
	maxErrorBodyBytes   = 300
	bytesPerKilobyte    = 1024
)

// Static errors.
var (
	ErrTokenMissing      = errors.New("captioning API token not set")
	ErrUnauthorized      = errors.New("captioning API token rejected (401)")
	ErrModelUnavailable  = errors.New("captioning model did not respond after all attempts, wait a minute and try again")
	ErrUnexpectedPayload = errors.New("unexpected captioning API response")
)

// Options configures an HFClient.
type Options struct {
	APIURL       string
	Token        string
	Timeout      time.Duration
	MaxAttempts  int
	RetryWait    time.Duration
	MaxDimension int
	JPEGQuality  int
}

// HFClient is a core.Captioner backed by the Hugging Face inference API.
type HFClient struct {
	httpClient *http.Client
	options    Options
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// generatedText is one element of the inference API response.
type generatedText struct {
	GeneratedText string `json:"generated_text"`
}

// NewHFClient creates a captioning client.
func NewHFClient(options Options, log *logger.Logger) *HFClient {
	if options.MaxAttempts < 1 {
		options.MaxAttempts = 1
	}

	return &HFClient{
		options: options,
		log:     log,
		sleep:   sleepContext,
		httpClient: &http.Client{
			Timeout: options.Timeout,
		},
	}
}

// Ready reports ErrTokenMissing when no API token is configured.
func (c *HFClient) Ready() error {
	if c.options.Token == "" {
		return ErrTokenMissing
	}

	return nil
}

// Caption sends img to the model and returns the cleaned-up caption.
func (c *HFClient) Caption(ctx context.Context, img image.Image) (string, error) {
	readyErr := c.Ready()
	if readyErr != nil {
		return "", readyErr
	}

	payload, err := PrepareJPEG(img, c.options.MaxDimension, c.options.JPEGQuality)
	if err != nil {
		return "", err
	}

	c.log.Info(logFmtSendingImage, len(payload)/bytesPerKilobyte)

	body, err := c.postWithRetry(ctx, payload)
	if err != nil {
		return "", err
	}

	raw, err := parseCaption(body)
	if err != nil {
		return "", err
	}

	return CleanCaption(raw), nil
}

// postWithRetry posts the image, waiting and retrying while the model is loading.
func (c *HFClient) postWithRetry(ctx context.Context, payload []byte) ([]byte, error) {
	for attempt := 1; attempt <= c.options.MaxAttempts; attempt++ {
		status, body, err := c.post(ctx, payload)
		if err != nil {
			return nil, err
		}

		c.log.Info(logFmtAttempt, attempt, c.options.MaxAttempts, status)

		switch status {
		case http.StatusOK:
			return body, nil
		case http.StatusServiceUnavailable:
			if attempt == c.options.MaxAttempts {
				break
			}

			wait := c.options.RetryWait * time.Duration(attempt)
			c.log.Warn(logFmtModelLoading, wait)

			sleepErr := c.sleep(ctx, wait)
			if sleepErr != nil {
				return nil, fmt.Errorf("captioning cancelled while model was loading: %w", sleepErr)
			}
		case http.StatusUnauthorized:
			return nil, ErrUnauthorized
		default:
			return nil, fmt.Errorf(errFmtNonOKStatus, status, truncate(string(body), maxErrorBodyBytes))
		}
	}

	return nil, ErrModelUnavailable
}

func (c *HFClient) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.APIURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+c.options.Token)
	req.Header.Set(headerContentType, contentTypeJPEG)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf(errFmtRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read captioning response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// parseCaption accepts either [{"generated_text": ...}] or {"generated_text": ...}.
func parseCaption(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)

	if bytes.HasPrefix(trimmed, []byte("[")) {
		var results []generatedText

		err := json.Unmarshal(trimmed, &results)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
		}

		if len(results) == 0 {
			return "", nil
		}

		return results[0].GeneratedText, nil
	}

	var result generatedText

	err := json.Unmarshal(trimmed, &result)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnexpectedPayload, err)
	}

	return result.GeneratedText, nil
}

// CleanCaption trims the caption, upper-cases its first letter and makes sure it
// ends with a period. An empty caption stays empty.
func CleanCaption(caption string) string {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(caption)
	caption = string(unicode.ToUpper(first)) + caption[size:]

	if !strings.HasSuffix(caption, ".") {
		caption += "."
	}

	return caption
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	return text[:limit]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
