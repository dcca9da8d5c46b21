package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/http/handler"
	"github.com/site-analyzer/portal/internal/http/router"
	"github.com/site-analyzer/portal/internal/realtime"
	"github.com/site-analyzer/portal/internal/repository"
	"github.com/site-analyzer/portal/internal/security"
	"github.com/site-analyzer/portal/internal/service"
)

type portalFixture struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	gateway *realtime.Gateway
}

// newPortalServer wires the full stack the way main does, with sqlite and
// miniredis standing in for postgres and a real redis.
func newPortalServer(t *testing.T) *portalFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.TrafficEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtMgr := security.NewJWTManager(strings.Repeat("a", 32), strings.Repeat("b", 32))
	tokens := service.NewTokenService(jwtMgr, service.NewRedisRevocationStore(client, ""), 15*time.Minute, 7*24*time.Hour)
	users := repository.NewUserRepository(db)
	auth := service.NewAuthService(users, tokens)
	traffic := repository.NewTrafficRepository(db)
	gateway := realtime.NewGateway(logger, 100, 64)

	versionPath := filepath.Join(t.TempDir(), "version.txt")
	if err := os.WriteFile(versionPath, []byte("1.0.0\n"), 0o600); err != nil {
		t.Fatalf("write version file: %v", err)
	}

	h := router.NewRouter(router.Dependencies{
		Logger:               logger,
		AuthHandler:          handler.NewAuthHandler(logger, auth, 7*24*time.Hour),
		DashboardHandler:     handler.NewDashboardHandler(logger, traffic),
		DownloadHandler:      handler.NewDownloadHandler(logger, filepath.Join(t.TempDir(), "missing.zip")),
		VersionHandler:       handler.NewVersionHandler(logger, versionPath),
		WSHandler:            realtime.NewWSHandler(logger, tokens, gateway),
		TokenVerifier:        tokens,
		TrafficRepo:          traffic,
		Gateway:              gateway,
		RateLimitWindow:      15 * time.Minute,
		RateLimitMaxRequests: 10000,
	})

	// The refresh cookie is Secure, so the test server must speak TLS for the
	// jar to send it back.
	srv := httptest.NewTLSServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	httpClient := srv.Client()
	httpClient.Jar = jar
	httpClient.Timeout = 10 * time.Second

	return &portalFixture{
		baseURL: srv.URL,
		client:  httpClient,
		db:      db,
		gateway: gateway,
	}
}

func (f *portalFixture) doJSON(t *testing.T, method, path string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, f.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	payload := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, payload
}

func stringField(t *testing.T, payload map[string]json.RawMessage, key string) string {
	t.Helper()
	var v string
	if err := json.Unmarshal(payload[key], &v); err != nil {
		t.Fatalf("field %q missing or not a string: %v", key, err)
	}
	return v
}

func (f *portalFixture) register(t *testing.T, username, password string) {
	t.Helper()
	resp, _ := f.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status = %d", username, resp.StatusCode)
	}
}

func (f *portalFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, payload := f.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status = %d", username, resp.StatusCode)
	}
	return stringField(t, payload, "accessToken")
}

// newPortalClientFor returns a second client against the same server with
// its own cookie jar, simulating another device.
func newPortalClientFor(t *testing.T, f *portalFixture) *portalFixture {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &portalFixture{
		baseURL: f.baseURL,
		client:  &http.Client{Transport: f.client.Transport, Jar: jar, Timeout: 10 * time.Second},
		db:      f.db,
		gateway: f.gateway,
	}
}

// promoteToAdmin flips the role directly in the database. The API has no
// role-change endpoint; promotion is an operator action.
func (f *portalFixture) promoteToAdmin(t *testing.T, username string) {
	t.Helper()
	res := f.db.Model(&domain.User{}).Where("username = ?", username).Update("role", domain.RoleAdmin)
	if res.Error != nil {
		t.Fatalf("promote %s: %v", username, res.Error)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("promote %s: %d rows affected", username, res.RowsAffected)
	}
}
