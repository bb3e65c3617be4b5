package arbiter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mbeaufort/pitchrally/internal/logger"
)

func chatReply(t *testing.T, w http.ResponseWriter, verdict string) {
	t.Helper()
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": verdict}},
		},
	}
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		t.Fatalf("failed to encode reply: %v", err)
	}
}

func TestJudge_ParsesVerdict(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		chatReply(t, w, `{"valid": true, "confidence": 0.92, "reason": "scored 27 league goals", "facts": [{"fact_type": "goals", "value": 27, "scope": "league", "season": "2023-24"}]}`)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gpt-4o-mini", 5*time.Second, logger.NewNop())
	verdict, err := client.Judge(context.Background(), Question{
		Answer:        "Harry Kane",
		CategoryTitle: "Scored 25+ goals in a season",
		Season:        "2023-24",
	})
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if !verdict.Valid || verdict.Confidence != 0.92 {
		t.Errorf("unexpected verdict: %+v", verdict)
	}
	if len(verdict.Facts) != 1 || verdict.Facts[0].Value != 27 {
		t.Errorf("unexpected facts: %+v", verdict.Facts)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotReq.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", gotReq.Temperature)
	}
	if gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %q", gotReq.ResponseFormat.Type)
	}
}

func TestJudge_ClampsPercentConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"valid": true, "confidence": 85, "reason": "ok"}`)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gpt-4o-mini", 5*time.Second, logger.NewNop())
	verdict, err := client.Judge(context.Background(), Question{Answer: "Pele", CategoryTitle: "World Cup winner"})
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if verdict.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", verdict.Confidence)
	}
}

func TestJudge_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gpt-4o-mini", 5*time.Second, logger.NewNop())
	_, err := client.Judge(context.Background(), Question{Answer: "Pele", CategoryTitle: "World Cup winner"})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestJudge_MalformedVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `not json at all`)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gpt-4o-mini", 5*time.Second, logger.NewNop())
	_, err := client.Judge(context.Background(), Question{Answer: "Pele", CategoryTitle: "World Cup winner"})
	if err == nil {
		t.Fatal("expected error for malformed verdict")
	}
}

func TestJudge_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise this blocks forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gpt-4o-mini", 5*time.Second, logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Judge(ctx, Question{Answer: "Pele", CategoryTitle: "World Cup winner"})
	if err == nil {
		t.Fatal("expected error when context expires")
	}
}

func TestMockClient_PerAnswerVerdicts(t *testing.T) {
	mock := NewMockClient(
		WithVerdictFor("Messi", &Verdict{Valid: true, Confidence: 0.95}),
	)

	v, err := mock.Judge(context.Background(), Question{Answer: "Messi"})
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if !v.Valid {
		t.Error("expected configured verdict for Messi")
	}

	v, err = mock.Judge(context.Background(), Question{Answer: "Unknown"})
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if v.Valid {
		t.Error("expected default rejection for unknown answer")
	}

	if len(mock.Calls()) != 2 {
		t.Errorf("expected 2 recorded calls, got %d", len(mock.Calls()))
	}
}
