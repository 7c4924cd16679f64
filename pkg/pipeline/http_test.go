package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atharva9604/conversational-insights-generator/pkg/common/middleware"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/models"
	"github.com/atharva9604/conversational-insights-generator/pkg/insight"
	"github.com/atharva9604/conversational-insights-generator/pkg/record"
	"github.com/gorilla/mux"
)

func newTestRouter(svc *Service) *mux.Router {
	router := mux.NewRouter()
	NewHTTPHandler(svc).Register(router)
	return router
}

func postAnalyze(t *testing.T, router *mux.Router, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze-call", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleAnalyzeCreated(t *testing.T) {
	svc := NewService(&fakeExtractor{insight: positiveInsight()}, newFakeStore(), nil, nil, 20, 10000)
	router := newTestRouter(svc)

	rr := postAnalyze(t, router, models.AnalyzeRequest{Transcript: sampleTranscript})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.CallResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.UniqueID == "" || resp.Sentiment != "Positive" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleAnalyzeBadInput(t *testing.T) {
	svc := NewService(&fakeExtractor{insight: positiveInsight()}, newFakeStore(), nil, nil, 20, 10000)
	router := newTestRouter(svc)

	rr := postAnalyze(t, router, models.AnalyzeRequest{Transcript: ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty transcript, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze-call", bytes.NewReader([]byte("{not json")))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestHandleAnalyzePersistenceConflict(t *testing.T) {
	store := newFakeStore()
	store.insertErr = record.NewPersistenceError(record.FailureConstraint, errors.New("duplicate key"))
	svc := NewService(&fakeExtractor{insight: positiveInsight()}, store, nil, nil, 20, 10000)
	router := newTestRouter(svc)

	rr := postAnalyze(t, router, models.AnalyzeRequest{Transcript: sampleTranscript})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for constraint violation, got %d", rr.Code)
	}
}

// timeoutGen fails every call with a wrapped per-call deadline, the shape a
// slow upstream leaves behind after the client's own timeout fires.
type timeoutGen struct {
	calls int
}

func (g *timeoutGen) Generate(ctx context.Context, prompt insight.Prompt) (string, error) {
	g.calls++
	return "", fmt.Errorf("generation call: %w", context.DeadlineExceeded)
}

func TestHandleAnalyzeTimeoutExhaustionIsExtractionFailure(t *testing.T) {
	gen := &timeoutGen{}
	svc := NewService(insight.NewExtractor(gen, insight.DefaultGuidance(), 3), newFakeStore(), nil, nil, 20, 10000)
	router := newTestRouter(svc)

	rr := postAnalyze(t, router, models.AnalyzeRequest{Transcript: sampleTranscript})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for exhausted extraction, got %d: %s", rr.Code, rr.Body.String())
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 outbound calls before giving up, got %d", gen.calls)
	}
	if strings.Contains(rr.Body.String(), "cancelled") {
		t.Fatalf("per-call timeouts must not be reported as caller cancellation: %s", rr.Body.String())
	}
}

func TestBodyLimitRejectsOversizedPayload(t *testing.T) {
	svc := NewService(&fakeExtractor{insight: positiveInsight()}, newFakeStore(), nil, nil, 20, 10000)
	router := mux.NewRouter()
	router.Use(middleware.BodyLimit(256))
	NewHTTPHandler(svc).Register(router)

	rr := postAnalyze(t, router, models.AnalyzeRequest{
		Transcript: "Agent: hello. Customer: " + strings.Repeat("thik hai ", 100),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rr.Code)
	}
}

func TestHandleRecordLookup(t *testing.T) {
	store := newFakeStore()
	svc := NewService(&fakeExtractor{insight: positiveInsight()}, store, nil, nil, 20, 10000)
	router := newTestRouter(svc)

	created := postAnalyze(t, router, models.AnalyzeRequest{Transcript: sampleTranscript})
	var resp models.CallResponse
	if err := json.Unmarshal(created.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/records/"+resp.UniqueID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/records/not-a-uuid", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rr.Code)
	}
}
