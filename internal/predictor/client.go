// Package predictor wraps the external food recognition service. The
// service takes an image and a medical condition and returns the
// predicted dish plus a condition-specific recommendation.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nutriscan-backend/internal/config"
)

const predictPath = "/predict-health"

// Prediction is the structured response of the inference service.
type Prediction struct {
	PredictedClass        string  `json:"predicted_class"`
	Confidence            float64 `json:"confidence"`
	NutrientHighlights    string  `json:"nutrient_highlights"`
	Recommendation        string  `json:"recommendation"`
	AlternativeSuggestion string  `json:"alternative_suggestion"`
	IsSafeForCondition    bool    `json:"is_safe_for_condition"`
	SafetyMessage         string  `json:"safety_message"`
	Message               string  `json:"message"`
}

// Client calls the inference service over HTTP. No retries: any
// transport failure or non-2xx status is a hard error for the caller.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client from predictor configuration.
func NewClient(cfg config.PredictorConfig) *Client {
	return &Client{
		BaseURL: cfg.BaseURL,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Predict sends the image and condition as a multipart form and parses
// the prediction. The image travels in the "file" field under its
// original filename; the condition in the "medical_condition" field.
func (c *Client) Predict(ctx context.Context, image io.Reader, filename, condition string) (*Prediction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build prediction form: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("copy image into prediction form: %w", err)
	}
	if err := mw.WriteField("medical_condition", condition); err != nil {
		return nil, fmt.Errorf("build prediction form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build prediction form: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + predictPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create prediction request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute prediction request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("prediction service error (%d): %s", resp.StatusCode, bodySnippet(body))
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction response: %v | body: %s", err, bodySnippet(body))
	}

	return &pred, nil
}

func bodySnippet(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
