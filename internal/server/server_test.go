package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/audiostore"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/pipeline"
	"github.com/book-expert/visionvoice/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockDescribe = errors.New("mock describe error")

type mockDescriber struct {
	readyErr    error
	describeErr error
	result      *core.Description
	inputs      []pipeline.Input
}

func (m *mockDescriber) Describe(_ context.Context, in pipeline.Input) (*core.Description, error) {
	m.inputs = append(m.inputs, in)

	if m.describeErr != nil {
		return nil, m.describeErr
	}

	return m.result, nil
}

func (m *mockDescriber) Ready() error {
	return m.readyErr
}

type fixture struct {
	server    *server.Server
	describer *mockDescriber
	store     *audiostore.FileStore
}

func newFixture(t *testing.T, maxUploadBytes int64) *fixture {
	t.Helper()

	log, err := logger.New(t.TempDir(), "server-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	store, err := audiostore.NewFileStore(filepath.Join(t.TempDir(), "audio"), pipeline.KeyPrefix, log)
	require.NoError(t, err)

	describer := &mockDescriber{
		result: &core.Description{
			ID:          "id-1",
			Caption:     "A cat on a sofa.",
			Description: "This image shows a cat on a sofa.",
			AudioKey:    "description_abc.mp3",
			AudioURL:    "/static/audio/description_abc.mp3",
			Hazard:      core.Hazard{Priority: 99},
		},
	}

	srv := server.New(describer, store, log, server.Options{
		MaxUploadBytes: maxUploadBytes,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		AllowedOrigins: []string{"*"},
		URLPrefix:      "/static/audio",
	})

	return &fixture{server: srv, describer: describer, store: store}
}

func (f *fixture) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(body, &decoded), string(body))

	return resp.StatusCode, decoded
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)

	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/describe-image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VisionVoice API is running", body["status"])
	assert.Equal(t, true, body["model_loaded"])
	assert.Equal(t, "", body["model_error"])
}

func TestHealth_ModelNotReady(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)
	f.describer.readyErr = errors.New("captioning API token not set")

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["model_loaded"])
	assert.Equal(t, "captioning API token not set", body["model_error"])
}

func TestDescribe_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	status, body := f.do(t, uploadRequest(t, "image", "cat.png", []byte("png bytes")))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "A cat on a sofa.", body["caption"])
	assert.Equal(t, "This image shows a cat on a sofa.", body["description"])
	assert.Equal(t, "/static/audio/description_abc.mp3", body["audio_url"])

	hazard, ok := body["hazard"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, hazard["hazard_detected"])

	require.Len(t, f.describer.inputs, 1)
	assert.Equal(t, "cat.png", f.describer.inputs[0].Filename)
	assert.Equal(t, []byte("png bytes"), f.describer.inputs[0].Image)
}

func TestDescribe_ClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		request     func(t *testing.T) *http.Request
		wantMessage string
	}{
		{
			name: "wrong field name",
			request: func(t *testing.T) *http.Request {
				t.Helper()

				return uploadRequest(t, "file", "cat.png", []byte("x"))
			},
			wantMessage: "No image file found in request. The file field must be named 'image'.",
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				t.Helper()

				req := httptest.NewRequest(http.MethodPost, "/describe-image", bytes.NewReader([]byte("{}")))
				req.Header.Set("Content-Type", "application/json")

				return req
			},
			wantMessage: "No image file found in request. The file field must be named 'image'.",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 1<<20)

			status, body := f.do(t, testCase.request(t))
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, testCase.wantMessage, body["error"])
			assert.Empty(t, f.describer.inputs)
		})
	}
}

func TestDescribe_InvalidImage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)
	f.describer.describeErr = fmt.Errorf("%w: unsupported file type 'txt'", pipeline.ErrInvalidInput)

	status, body := f.do(t, uploadRequest(t, "image", "notes.txt", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "unsupported file type 'txt'")
}

func TestDescribe_ProcessingFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)
	f.describer.describeErr = fmt.Errorf("%w: %w", pipeline.ErrCaptionFailed, errMockDescribe)

	status, body := f.do(t, uploadRequest(t, "image", "cat.png", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Processing failed: captioning failed: mock describe error", body["error"])
}

func TestDescribe_ModelNotReady(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)
	f.describer.readyErr = errors.New("captioning API token not set")

	status, body := f.do(t, uploadRequest(t, "image", "cat.png", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "AI model failed to load: captioning API token not set. Check the captioning API token.", body["error"])
	assert.Empty(t, f.describer.inputs)
}

func TestDescribe_TooLarge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	status, body := f.do(t, uploadRequest(t, "image", "big.png", bytes.Repeat([]byte("x"), 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, "Image is too large. The limit is 1 MB.", body["error"])
	assert.Empty(t, f.describer.inputs)
}

func TestDescribe_Preflight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	status, body := f.do(t, httptest.NewRequest(http.MethodOptions, "/describe-image", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "preflight ok", body["status"])
}

func TestDescribe_CORSPreflight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	req := httptest.NewRequest(http.MethodOptions, "/describe-image", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := f.server.App().Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestAudio_Serve(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)
	mp3 := []byte{0xFF, 0xFB, 0x90, 0x64}

	require.NoError(t, f.store.Upload(context.Background(), "description_abc.mp3", mp3))

	resp, err := f.server.App().Test(httptest.NewRequest(http.MethodGet, "/static/audio/description_abc.mp3", nil), -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, mp3, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAudio_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/static/audio/description_missing.mp3", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Audio file not found.", body["error"])
}

func TestAudio_RejectsNamesOutsideGeneratedAudio(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "secret.txt"), []byte("not audio"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "other.mp3"), []byte{0xFF, 0xFB}, 0o600))

	for _, name := range []string{"secret.txt", "other.mp3"} {
		status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/static/audio/"+name, nil))
		assert.Equal(t, http.StatusBadRequest, status, name)
		assert.Equal(t, "Invalid audio file name.", body["error"], name)
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1<<20)

	status, body := f.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Cannot GET /nope", body["error"])
}
