package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config drives a synthetic session-traffic run against a live instance:
// redeem attempts, verify polls and authorized reads, in the mix the chosen
// profile dictates.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64

	// AccessCode lets the generator mint real sessions; without it only the
	// negative paths are exercised.
	AccessCode string
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
	Elapsed       time.Duration
}

type job struct {
	method string
	path   string
	body   []byte
	token  string
}

// Run generates traffic until the configured duration elapses or ctx is
// cancelled. Request errors count as failures; non-2xx statuses do not,
// rejected credentials are expected traffic here.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("loadgen: base URL is required")
	}
	profile := normalizeProfile(cfg.Profile)
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	rng := rand.New(rand.NewSource(cfg.Seed))

	var sessionToken string
	if cfg.AccessCode != "" {
		token, err := redeemSession(runCtx, client, cfg)
		if err == nil {
			sessionToken = token
		}
	}

	jobs := make(chan job)
	var mu sync.Mutex
	res := &Result{StatusClasses: map[string]int{}}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				status, err := perform(runCtx, client, cfg.BaseURL, j)
				mu.Lock()
				res.TotalRequests++
				if err != nil {
					res.Failures++
				} else {
					res.StatusClasses[classifyStatusClass(status)]++
				}
				mu.Unlock()
			}
		}()
	}

	started := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()

feed:
	for {
		select {
		case <-runCtx.Done():
			break feed
		case <-ticker.C:
			select {
			case jobs <- nextJob(rng, profile, sessionToken):
			case <-runCtx.Done():
				break feed
			}
		}
	}
	close(jobs)
	wg.Wait()

	res.Elapsed = time.Since(started)
	return res, nil
}

func nextJob(rng *rand.Rand, profile, sessionToken string) job {
	roll := rng.Intn(100)
	switch profile {
	case "access":
		return redeemJob(rng)
	case "verify":
		return verifyJob(rng, sessionToken, roll)
	default: // mixed
		switch {
		case roll < 30:
			return redeemJob(rng)
		case roll < 80:
			return verifyJob(rng, sessionToken, roll)
		default:
			return job{method: http.MethodGet, path: "/api/v1/me", token: sessionToken}
		}
	}
}

func redeemJob(rng *rand.Rand) job {
	body, _ := json.Marshal(map[string]string{
		"access_code": fmt.Sprintf("guess-%06d", rng.Intn(1000000)),
		"user_id":     fmt.Sprintf("loadgen-%d", rng.Intn(1000)),
	})
	return job{method: http.MethodPost, path: "/api/v1/access/redeem", body: body}
}

func verifyJob(rng *rand.Rand, sessionToken string, roll int) job {
	token := sessionToken
	if token == "" || roll%3 == 0 {
		token = fmt.Sprintf("%064x", rng.Int63())
	}
	return job{method: http.MethodPost, path: "/api/v1/access/verify", token: token}
}

func perform(ctx context.Context, client *http.Client, baseURL string, j job) (int, error) {
	var body *bytes.Reader
	if j.body != nil {
		body = bytes.NewReader(j.body)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, j.method, strings.TrimRight(baseURL, "/")+j.path, body)
	if err != nil {
		return 0, err
	}
	if j.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if j.token != "" {
		req.Header.Set("X-Session-Token", j.token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func redeemSession(ctx context.Context, client *http.Client, cfg Config) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"access_code": cfg.AccessCode,
		"user_id":     "loadgen-seed",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+"/api/v1/access/redeem", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("loadgen: redeem failed with status %d", resp.StatusCode)
	}
	var payload struct {
		Data struct {
			SessionToken string `json:"session_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Data.SessionToken, nil
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

func normalizeProfile(raw string) string {
	v := strings.TrimSpace(strings.ToLower(raw))
	switch v {
	case "access", "verify", "mixed":
		return v
	case "":
		return "mixed"
	default:
		return "mixed"
	}
}
