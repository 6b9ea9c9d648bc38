package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/book-expert/visionvoice/internal/tts/audio"
)

// Google Translate speech endpoint parameters.
const (
	googleClientID     = "tw-ob"
	googleNormalSpeed  = "1"
	googleSlowSpeed    = "0.24"
	googleMaxChunkRune = 100
	headerUserAgent    = "User-Agent"
	googleUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) visionvoice"
	maxErrorBodyBytes  = 300
)

// Error messages.
const (
	errFmtGoogleNonOKStatus = "speech endpoint returned %s for chunk %d/%d: %s"
	errFmtGoogleChunkFailed = "chunk %d/%d: %w"
)

// GoogleClient synthesizes MP3 speech through the Google Translate TTS endpoint.
// Text longer than the endpoint accepts is split at word boundaries and the MP3
// segments are concatenated, which MP3 decoders play back as one stream.
type GoogleClient struct {
	httpClient *http.Client
	endpoint   string
	slow       bool
}

// NewGoogleClient creates a client for the endpoint at endpointURL.
func NewGoogleClient(endpointURL string, timeout time.Duration, slow bool) *GoogleClient {
	return &GoogleClient{
		endpoint: endpointURL,
		slow:     slow,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize implements core.Synthesizer.
func (g *GoogleClient) Synthesize(ctx context.Context, text, language string) (audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return audio.Clip{}, ErrTextEmpty
	}

	if language == "" {
		language = defaultLanguage
	}

	chunks := SplitText(text, googleMaxChunkRune)

	var buffer bytes.Buffer

	for index, chunk := range chunks {
		data, err := g.fetchChunk(ctx, chunk, language, index, len(chunks))
		if err != nil {
			return audio.Clip{}, fmt.Errorf(errFmtGoogleChunkFailed, index+1, len(chunks), err)
		}

		buffer.Write(data)
	}

	if buffer.Len() == 0 {
		return audio.Clip{}, ErrReceivedEmptyAudio
	}

	return audio.Clip{Data: buffer.Bytes(), Format: audio.FORMAT_MP3}, nil
}

func (g *GoogleClient) fetchChunk(
	ctx context.Context,
	chunk, language string,
	index, total int,
) ([]byte, error) {
	speed := googleNormalSpeed
	if g.slow {
		speed = googleSlowSpeed
	}

	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", googleClientID)
	query.Set("q", chunk)
	query.Set("tl", language)
	query.Set("ttsspeed", speed)
	query.Set("total", strconv.Itoa(total))
	query.Set("idx", strconv.Itoa(index))
	query.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerUserAgent, googleUserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach speech endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, fmt.Errorf(errFmtGoogleNonOKStatus, resp.Status, index+1, total, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return data, nil
}

// SplitText breaks text into pieces of at most maxRunes runes, preferring to cut
// after punctuation in the second half of a piece, then at spaces. Words longer
// than maxRunes are cut mid-word.
func SplitText(text string, maxRunes int) []string {
	var chunks []string

	remaining := strings.TrimSpace(text)

	for remaining != "" {
		if utf8.RuneCountInString(remaining) <= maxRunes {
			chunks = append(chunks, remaining)

			break
		}

		cut := cutPoint(remaining, maxRunes)

		chunk := strings.TrimSpace(remaining[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		remaining = strings.TrimSpace(remaining[cut:])
	}

	return chunks
}

// cutPoint returns the byte offset at which to split text so that the head holds at
// most maxRunes runes.
func cutPoint(text string, maxRunes int) int {
	limit := len(text)
	runes := 0

	for offset := range text {
		if runes == maxRunes {
			limit = offset

			break
		}

		runes++
	}

	head := text[:limit]

	if index := strings.LastIndexAny(head, ".!?;,"); index >= len(head)/2 {
		return index + 1
	}

	if index := strings.LastIndexByte(head, ' '); index > 0 {
		return index
	}

	return limit
}
