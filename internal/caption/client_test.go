package caption

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "hf_test_token"

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "caption-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func newTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	return img
}

func newTestClient(t *testing.T, serverURL string, maxAttempts int) (*HFClient, *[]time.Duration) {
	t.Helper()

	client := NewHFClient(Options{
		APIURL:       serverURL,
		Token:        testToken,
		Timeout:      5 * time.Second,
		MaxAttempts:  maxAttempts,
		RetryWait:    20 * time.Second,
		MaxDimension: 512,
		JPEGQuality:  85,
	}, newTestLogger(t))

	var waits []time.Duration

	client.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)

		return nil
	}

	return client, &waits
}

func TestHFClient_Caption_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get(headerAuthorization))
		assert.Equal(t, contentTypeJPEG, r.Header.Get(headerContentType))

		uploaded, err := jpeg.Decode(r.Body)
		assert.NoError(t, err)

		if err == nil {
			assert.Equal(t, 512, uploaded.Bounds().Dx())
			assert.Equal(t, 256, uploaded.Bounds().Dy())
		}

		_, _ = w.Write([]byte(`[{"generated_text": "a dog running on the beach"}]`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 3)

	text, err := client.Caption(context.Background(), newTestImage(1024, 512))
	require.NoError(t, err)
	assert.Equal(t, "A dog running on the beach.", text)
}

func TestHFClient_Caption_ObjectPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"generated_text": "two cats on a sofa."}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 1)

	text, err := client.Caption(context.Background(), newTestImage(32, 32))
	require.NoError(t, err)
	assert.Equal(t, "Two cats on a sofa.", text)
}

func TestHFClient_Caption_RetriesWhileModelLoads(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": "Model is currently loading"}`))

			return
		}

		_, _ = w.Write([]byte(`[{"generated_text": "a bicycle"}]`))
	}))
	defer server.Close()

	client, waits := newTestClient(t, server.URL, 3)

	text, err := client.Caption(context.Background(), newTestImage(16, 16))
	require.NoError(t, err)
	assert.Equal(t, "A bicycle.", text)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{20 * time.Second, 40 * time.Second}, *waits)
}

func TestHFClient_Caption_ModelNeverLoads(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, waits := newTestClient(t, server.URL, 3)

	_, err := client.Caption(context.Background(), newTestImage(16, 16))
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Len(t, *waits, 2)
}

func TestHFClient_Caption_Unauthorized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 3)

	_, err := client.Caption(context.Background(), newTestImage(16, 16))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHFClient_Caption_OtherStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 1000))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 3)

	_, err := client.Caption(context.Background(), newTestImage(16, 16))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Less(t, len(err.Error()), 400)
}

func TestHFClient_Caption_TokenMissing(t *testing.T) {
	t.Parallel()

	client := NewHFClient(Options{APIURL: "http://127.0.0.1:1"}, newTestLogger(t))

	require.ErrorIs(t, client.Ready(), ErrTokenMissing)

	_, err := client.Caption(context.Background(), newTestImage(16, 16))
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestParseCaption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "list", body: `[{"generated_text": "a cat"}]`, want: "a cat"},
		{name: "object", body: `{"generated_text": "a cat"}`, want: "a cat"},
		{name: "empty list", body: `[]`, want: ""},
		{name: "garbage", body: `<html>`, wantErr: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseCaption([]byte(testCase.body))
			if testCase.wantErr {
				require.ErrorIs(t, err, ErrUnexpectedPayload)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestCleanCaption(t *testing.T) {
	t.Parallel()

	assert.Empty(t, CleanCaption("   "))
	assert.Equal(t, "A dog.", CleanCaption(" a dog "))
	assert.Equal(t, "A dog.", CleanCaption("A dog."))
	assert.Equal(t, "Élan vital.", CleanCaption("élan vital"))
}
