package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Vision calls an image classification and model-plate OCR service.
type Vision struct {
	BaseURL string
	HTTP    *http.Client
}

// NewVision returns a vision client rooted at baseURL.
func NewVision(baseURL string, timeout time.Duration) *Vision {
	return &Vision{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: newHTTPClient(timeout)}
}

type visionRequest struct {
	ImageURL string `json:"image_url"`
}

type visionResponse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

func (v *Vision) call(ctx context.Context, path, imageURL string) (visionResponse, error) {
	var out visionResponse
	body, err := postJSON(ctx, v.HTTP, "vision", v.BaseURL+path, visionRequest{ImageURL: imageURL}, nil)
	if err != nil {
		return out, err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return out, fmt.Errorf("vision %s: decode response: %w", path, err)
	}
	return out, nil
}

// Classify returns the product class label of the image.
func (v *Vision) Classify(ctx context.Context, imageURL string) (string, error) {
	r, err := v.call(ctx, "/classify", imageURL)
	return r.Label, err
}

// RecognizeModel returns the raw OCR text of the model plate.
func (v *Vision) RecognizeModel(ctx context.Context, imageURL string) (string, error) {
	r, err := v.call(ctx, "/ocr", imageURL)
	return r.Text, err
}

// StaticVision answers every image with fixed values. It stands in when no
// vision service is configured.
type StaticVision struct {
	Label string
	Model string
}

func (s StaticVision) Classify(context.Context, string) (string, error) { return s.Label, nil }

func (s StaticVision) RecognizeModel(context.Context, string) (string, error) { return s.Model, nil }
