package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/visionvoice/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAudio = []byte{0xFF, 0xFB, 0x90, 0x64}

func newFakeService(t *testing.T, describeStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /describe-image", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		defer file.Close()

		data, _ := io.ReadAll(file)
		assert.Equal(t, "street.png", header.Filename)
		assert.Equal(t, []byte("image bytes"), data)

		w.Header().Set("Content-Type", "application/json")

		if describeStatus != http.StatusOK {
			w.WriteHeader(describeStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Processing failed: captioning failed"})

			return
		}

		_ = json.NewEncoder(w).Encode(describeResponse{
			Caption:     "A staircase.",
			Description: "This image shows a staircase.",
			AudioURL:    "/static/audio/description_abc.mp3",
			Hazard: core.Hazard{
				Detected: true, Type: "staircase ahead", Emoji: "🪜", Priority: 3, MatchedKeyword: "staircase",
			},
		})
	})

	mux.HandleFunc("GET /static/audio/description_abc.mp3", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(testAudio)
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "VisionVoice API is running", ModelLoaded: false, ModelError: "captioning API token not set"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var output bytes.Buffer

	rootCmd := newRootCmd()
	rootCmd.SetOut(&output)
	rootCmd.SetErr(&output)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())

	return output.String(), err
}

func writeImage(t *testing.T) string {
	t.Helper()

	imagePath := filepath.Join(t.TempDir(), "street.png")
	require.NoError(t, os.WriteFile(imagePath, []byte("image bytes"), 0o600))

	return imagePath
}

func TestDescribeCommand(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusOK)
	outputDir := filepath.Join(t.TempDir(), "audio")

	output, err := runCommand(t, "describe", "--server", server.URL, "--image", writeImage(t), "--output", outputDir)
	require.NoError(t, err)

	assert.Contains(t, output, "Description: This image shows a staircase.")
	assert.Contains(t, output, "staircase ahead (priority 3")
	assert.Contains(t, output, "Audio URL:   /static/audio/description_abc.mp3")

	saved, err := os.ReadFile(filepath.Join(outputDir, "description_abc.mp3"))
	require.NoError(t, err)
	assert.Equal(t, testAudio, saved)
}

func TestDescribeCommand_ServerError(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusInternalServerError)

	_, err := runCommand(t, "describe", "--server", server.URL, "--image", writeImage(t))
	require.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "Processing failed: captioning failed")
}

func TestDescribeCommand_ArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing image", args: []string{"describe"}, wantErr: "--image is required"},
		{name: "unreadable image", args: []string{"describe", "--image", "/nonexistent/photo.png"}, wantErr: "failed to read image"},
		{name: "unexpected argument", args: []string{"describe", "photo.png"}, wantErr: "unknown command"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := runCommand(t, testCase.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.wantErr)
		})
	}
}

func TestHealthCommand(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusOK)

	output, err := runCommand(t, "health", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, output, "Service: VisionVoice API is running")
	assert.Contains(t, output, "Model loaded: false")
	assert.Contains(t, output, "Model error: captioning API token not set")
}
