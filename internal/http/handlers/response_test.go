package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-chat-intake/internal/http/middleware"
)

func newEnvelopeRouter(logTo *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	if logTo != nil {
		lg := zerolog.New(logTo).Level(zerolog.DebugLevel)
		r.Use(func(c *gin.Context) {
			c.Set("logger", &lg)
			c.Next()
		})
	}
	return r
}

func TestFail_ServerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := newEnvelopeRouter(&buf)
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeProcessFailed, "engine down")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid-500")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp != (ErrorResponse{RequestID: "rid-500", Code: ErrCodeProcessFailed, Message: "engine down"}) {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func TestFail_ClientErrorLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	r := newEnvelopeRouter(&buf)
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID == "" || er.RequestID != w.Header().Get("X-Request-ID") {
		t.Fatalf("generated request id not echoed: %+v", er)
	}
	if strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Fatalf("4xx must log at debug only, got: %s", buf.String())
	}
}

func TestSuccessHelpers(t *testing.T) {
	r := newEnvelopeRouter(nil)
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusOK, PushResponse{Status: "success", Outcome: "buffered"}) })
	r.GET("/same", func(c *gin.Context) { notModified(c, `W/"x"`) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	var body PushResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Outcome != "buffered" {
		t.Fatalf("ok body = %+v, %v", body, err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/same", nil))
	if w.Code != http.StatusNotModified || w.Header().Get("ETag") != `W/"x"` || w.Body.Len() != 0 {
		t.Fatalf("notModified: code=%d etag=%q len=%d", w.Code, w.Header().Get("ETag"), w.Body.Len())
	}
}
