package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config drives synthetic traffic against a running portal so the live feed
// and dashboards have something to show.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

type request struct {
	method string
	path   string
	body   string
}

func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("loadgen: base URL is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	profile := normalizeProfile(cfg.Profile)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	requests := make(chan request)
	go func() {
		defer close(requests)
		rnd := rand.New(rand.NewSource(cfg.Seed))
		ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case requests <- pickRequest(profile, rnd):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var (
		mu     sync.Mutex
		result = &Result{StatusClasses: make(map[string]int)}
		wg     sync.WaitGroup
	)
	client := &http.Client{Timeout: 10 * time.Second}
	base := strings.TrimRight(cfg.BaseURL, "/")

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range requests {
				status, err := send(ctx, client, base, req)
				mu.Lock()
				result.TotalRequests++
				if err != nil {
					result.Failures++
				} else {
					result.StatusClasses[classifyStatusClass(status)]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return result, nil
}

func send(ctx context.Context, client *http.Client, base string, r request) (int, error) {
	var body io.Reader
	if r.body != "" {
		body = bytes.NewBufferString(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, base+r.path, body)
	if err != nil {
		return 0, err
	}
	if r.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func pickRequest(profile string, rnd *rand.Rand) request {
	public := []request{
		{method: http.MethodGet, path: "/api/version"},
		{method: http.MethodGet, path: "/health/live"},
	}
	auth := []request{
		{method: http.MethodPost, path: "/api/auth/login", body: fmt.Sprintf(`{"username":"loadgen-%s","password":"wrong-password"}`, uuid.NewString()[:8])},
		{method: http.MethodGet, path: "/api/auth/check-auth"},
		{method: http.MethodGet, path: "/api/download"},
	}
	switch profile {
	case "public":
		return public[rnd.Intn(len(public))]
	case "auth":
		return auth[rnd.Intn(len(auth))]
	default:
		all := append(public, auth...)
		return all[rnd.Intn(len(all))]
	}
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(p string) string {
	v := strings.ToLower(strings.TrimSpace(p))
	if v == "" {
		return "mixed"
	}
	return v
}
