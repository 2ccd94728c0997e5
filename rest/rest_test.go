package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xraph/replay"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/ratelimit"
	"github.com/xraph/replay/store/memory"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()

	analyzer := analysis.AnalyzerFunc(func(_ context.Context, fp analysis.Fingerprint, _ int64) (*analysis.Result, error) {
		return &analysis.Result{Summary: "highlights for " + fp.Key()}, nil
	})
	eng := replay.New(memory.New(),
		replay.WithAnalyzer(analyzer),
		replay.WithJournalConfig(1, 5*time.Millisecond),
	)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(func() { eng.Stop() })

	srv := httptest.NewServer(New(eng, opts...).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, decoded
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"u1"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"points":100}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("credit status = %d", resp.StatusCode)
	}

	t.Run("FreshAnalysis", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"u1","platform":"youtube","content_id":"abc","duration_seconds":480}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
		}
		if body["cached"] != false {
			t.Errorf("cached = %v, want false", body["cached"])
		}
		if body["points_used"] != "24" {
			t.Errorf("points_used = %v, want \"24\"", body["points_used"])
		}
	})

	t.Run("CachedAnalysis", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"u1","platform":"youtube","content_id":"abc","duration_seconds":480}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["cached"] != true {
			t.Errorf("cached = %v, want true", body["cached"])
		}
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"poor"}`)

		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"poor","platform":"youtube","content_id":"xyz","duration_seconds":480}`)
		if resp.StatusCode != http.StatusPaymentRequired {
			t.Errorf("status = %d, want 402", resp.StatusCode)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"u1","platform":"youtube","content_id":"abc","duration_seconds":0}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"ghost","platform":"youtube","content_id":"new","duration_seconds":480}`)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("InvalidateThenReanalyze", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/v1/analyses/youtube/abc", "")
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("invalidate status = %d", resp.StatusCode)
		}

		resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"u1","platform":"youtube","content_id":"abc","duration_seconds":480}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["cached"] != false {
			t.Errorf("cached = %v, want false after invalidation", body["cached"])
		}
	})
}

func TestAccountEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("CreateAndGet", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"u1","tier":"standard"}`)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["user_id"] != "u1" {
			t.Errorf("user_id = %v", body["user_id"])
		}

		resp, body = doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/u1", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["tier"] != "standard" {
			t.Errorf("tier = %v", body["tier"])
		}
	})

	t.Run("DuplicateConflicts", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"u1"}`)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("SuspendBlocksAnalyze", func(t *testing.T) {
		doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"points":100}`)

		resp, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/accounts/u1/status", `{"status":"suspended"}`)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("suspend status = %d", resp.StatusCode)
		}

		resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/analyses",
			`{"user_id":"u1","platform":"youtube","content_id":"abc","duration_seconds":480}`)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("MissingAccount", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/ghost", "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestCreditEndpoints(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"u1"}`)

	t.Run("RedeemPackage", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"package":"creator"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
		}
		if body["balance"] != "550" {
			t.Errorf("balance = %v, want \"550\"", body["balance"])
		}
	})

	t.Run("UnknownPackage", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"package":"enterprise"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("DebitOverdraws", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/debits", `{"points":10000}`)
		if resp.StatusCode != http.StatusPaymentRequired {
			t.Errorf("status = %d, want 402", resp.StatusCode)
		}
	})

	t.Run("ZeroPoints", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"points":0}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestStatementEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"u1"}`)
	doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"points":100}`)

	// Let the journal worker flush before summarizing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/u1/transactions", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transactions status = %d", resp.StatusCode)
		}
		if txns, ok := body["transactions"].([]any); ok && len(txns) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("journal never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Now().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().Add(time.Hour).Format(time.RFC3339)

	resp, body := doJSON(t, http.MethodGet,
		srv.URL+"/v1/accounts/u1/statement?start="+start+"&end="+end, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["net_change"] != "100" {
		t.Errorf("net_change = %v, want \"100\"", body["net_change"])
	}

	t.Run("BadPeriod", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/u1/statement?start=nope&end="+end, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(),
		ratelimit.WithPolicy(ratelimit.Policy{Name: PolicyAnalyze, Window: time.Minute, MaxRequests: 2}),
		ratelimit.WithPolicy(ratelimit.Policy{Name: PolicyCredits, Window: time.Minute, MaxRequests: 100}),
	)
	t.Cleanup(func() { limiter.Close() })

	srv := newTestServer(t, WithLimiter(limiter))
	doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", `{"user_id":"u1"}`)
	doJSON(t, http.MethodPost, srv.URL+"/v1/accounts/u1/credits", `{"points":100}`)

	analyze := func(contentID string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/analyses",
			strings.NewReader(`{"user_id":"u1","platform":"youtube","content_id":"`+contentID+`","duration_seconds":60}`))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("X-User-ID", "u1")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp
	}

	first := analyze("v1")
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", first.StatusCode)
	}
	if got := first.Header.Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("remaining = %q, want \"1\"", got)
	}

	if resp := analyze("v2"); resp.StatusCode != http.StatusOK {
		t.Fatalf("second status = %d", resp.StatusCode)
	}

	third := analyze("v3")
	if third.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third status = %d, want 429", third.StatusCode)
	}
	if third.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if got := third.Header.Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("remaining = %q, want \"0\"", got)
	}
}
