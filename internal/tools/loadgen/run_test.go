package loadgen

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassifyStatusClass(t *testing.T) {
	cases := map[int]string{
		200: "2xx",
		302: "3xx",
		404: "4xx",
		500: "5xx",
		100: "other",
	}
	for status, want := range cases {
		if got := classifyStatusClass(status); got != want {
			t.Fatalf("classifyStatusClass(%d)=%q want %q", status, got, want)
		}
	}
}

func TestNormalizeProfile(t *testing.T) {
	if got := normalizeProfile(""); got != "mixed" {
		t.Fatalf("normalizeProfile empty=%q want mixed", got)
	}
	if got := normalizeProfile("  AUTH  "); got != "auth" {
		t.Fatalf("normalizeProfile auth=%q want auth", got)
	}
}

func TestPickRequestHonorsProfile(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		req := pickRequest("public", rnd)
		if req.method != http.MethodGet {
			t.Fatalf("public profile produced %s %s", req.method, req.path)
		}
		if req.path != "/api/version" && req.path != "/health/live" {
			t.Fatalf("public profile produced path %s", req.path)
		}
	}
}

func TestRunCollectsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "public",
		Duration:    300 * time.Millisecond,
		RPS:         50,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.TotalRequests == 0 {
		t.Fatal("no requests were sent")
	}
	if result.Failures != 0 {
		t.Fatalf("failures = %d, want 0", result.Failures)
	}
	if result.StatusClasses["2xx"] != result.TotalRequests {
		t.Fatalf("status classes = %+v, want all 2xx", result.StatusClasses)
	}
}

func TestRunRequiresBaseURL(t *testing.T) {
	if _, err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("expected an error without a base URL")
	}
}
