package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req visionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ImageURL != "https://img/a.jpg" {
			t.Errorf("image_url = %q", req.ImageURL)
		}
		switch r.URL.Path {
		case "/classify":
			_, _ = w.Write([]byte(`{"label":"Compressor"}`))
		case "/ocr":
			_, _ = w.Write([]byte(`{"text":" DZ90X10 "}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	v := NewVision(srv.URL, time.Second)
	ctx := context.Background()
	if got, err := v.Classify(ctx, "https://img/a.jpg"); err != nil || got != "Compressor" {
		t.Fatalf("Classify = %q, %v", got, err)
	}
	if got, err := v.RecognizeModel(ctx, "https://img/a.jpg"); err != nil || got != " DZ90X10 " {
		t.Fatalf("RecognizeModel = %q, %v", got, err)
	}

	var s StaticVision
	if got, _ := s.Classify(ctx, "x"); got != "" {
		t.Fatalf("zero StaticVision must return empty labels")
	}
}
