package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/fileutil"
)

const (
	routeDescribe  = "/describe-image"
	routeHealth    = "/"
	formFieldImage = "image"
	filePermission = 0o600
)

// ErrServer is returned when the service answers with an error status.
var ErrServer = errors.New("service returned an error")

type describeResponse struct {
	Caption     string      `json:"caption"`
	Description string      `json:"description"`
	AudioURL    string      `json:"audio_url"`
	Hazard      core.Hazard `json:"hazard"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelError  string `json:"model_error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// apiClient talks to the visionvoice HTTP API.
type apiClient struct {
	httpClient *http.Client
	baseURL    string
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// describe uploads the image at imagePath.
func (c *apiClient) describe(ctx context.Context, imagePath string) (*describeResponse, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(formFieldImage, filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+routeDescribe, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result describeResponse

	err = c.doJSON(req, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// health fetches the service health.
func (c *apiClient) health(ctx context.Context) (*healthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+routeHealth, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result healthResponse

	err = c.doJSON(req, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// downloadAudio saves the audio at audioURL, relative to the service, into outputDir.
func (c *apiClient) downloadAudio(ctx context.Context, audioURL, outputDir string) (string, error) {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return "", fmt.Errorf("invalid audio url '%s': %w", audioURL, err)
	}

	target := audioURL
	if !parsed.IsAbs() {
		target = c.baseURL + audioURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s downloading %s", ErrServer, resp.Status, target)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	err = fileutil.EnsureDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, fileutil.SanitizeFilename(path.Base(parsed.Path)))

	err = os.WriteFile(outputPath, data, filePermission)
	if err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}

	return outputPath, nil
}

// doJSON sends req and decodes a JSON body into out, turning error responses into
// ErrServer with the service's message.
func (c *apiClient) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse

		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%w (%s): %s", ErrServer, resp.Status, apiErr.Error)
		}

		return fmt.Errorf("%w (%s)", ErrServer, resp.Status)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
