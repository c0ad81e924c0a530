package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/http/handler"
	"github.com/darkwavepulse/pulse-access/internal/http/router"
	"github.com/darkwavepulse/pulse-access/internal/repository"
	"github.com/darkwavepulse/pulse-access/internal/security"
	"github.com/darkwavepulse/pulse-access/internal/service"
	"github.com/darkwavepulse/pulse-access/internal/vault"
)

const (
	testAccessCode     = "integration-access-code"
	testIdentitySecret = "integration-identity-secret"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testStack struct {
	baseURL  string
	client   *http.Client
	db       *gorm.DB
	identity *security.IdentityVerifier
}

var integrationDBCounter int

func newAccessTestServer(t *testing.T) (*testStack, func()) {
	t.Helper()
	integrationDBCounter++
	dsn := fmt.Sprintf("file:integration_test_%d?mode=memory&cache=shared", integrationDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}, &domain.WhitelistEntry{}, &domain.Wallet{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := service.NewSessionService(repository.NewSessionRepository(db), service.NewInMemoryNegativeTokenCacheStore(), log)
	hash, err := security.HashAccessCode(testAccessCode)
	if err != nil {
		t.Fatalf("hash access code: %v", err)
	}
	identity := security.NewIdentityVerifier("https://id.integration", "pulse-access", testIdentitySecret)
	access := service.NewAccessService(sessions, repository.NewWhitelistRepository(db), identity, hash, log)
	wallets := service.NewWalletService(repository.NewWalletRepository(db), vault.NewStatic("integration-master"))

	h := router.NewRouter(router.Dependencies{
		AccessHandler:      handler.NewAccessHandler(access, sessions),
		WalletHandler:      handler.NewWalletHandler(wallets),
		Sessions:           sessions,
		CORSOrigins:        []string{"http://localhost:3000"},
		AccessRateLimitRPM: 1000,
		APIRateLimitRPM:    1000,
	})
	srv := httptest.NewServer(h)

	stack := &testStack{
		baseURL:  srv.URL,
		client:   &http.Client{Timeout: 5 * time.Second},
		db:       db,
		identity: identity,
	}
	return stack, srv.Close
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func redeem(t *testing.T, s *testStack, userID, email string) string {
	t.Helper()
	resp, env := doJSON(t, s.client, http.MethodPost, s.baseURL+"/api/v1/access/redeem", map[string]string{
		"access_code": testAccessCode,
		"user_id":     userID,
		"email":       email,
	}, nil)
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("redeem failed: status=%d success=%v", resp.StatusCode, env.Success)
	}
	var data struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode redeem data: %v", err)
	}
	if data.SessionToken == "" {
		t.Fatal("expected a session token")
	}
	return data.SessionToken
}
