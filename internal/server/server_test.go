package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/feed"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

const sampleICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

var updated = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

// fakeRefresher publishes a fixed snapshot or fails with err
type fakeRefresher struct {
	cache *feed.Cache
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*feed.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snap := sampleSnapshot()
	f.cache.Store(snap)
	return snap, nil
}

func (f *fakeRefresher) Cache() *feed.Cache {
	return f.cache
}

func sampleSnapshot() *feed.Snapshot {
	return &feed.Snapshot{
		ICS: []byte(sampleICS),
		Records: []holiday.Record{
			{Name: "元旦", Year: 2026},
			{Name: "国庆节", Year: 2025},
		},
		Years:     []int{2026, 2025},
		UpdatedAt: updated,
	}
}

func newTestServer(t *testing.T, withData bool) (*Server, *fakeRefresher) {
	t.Helper()

	f := &fakeRefresher{cache: &feed.Cache{}}
	if withData {
		f.cache.Store(sampleSnapshot())
	}
	return New(DefaultConfig(), f), f
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

func TestFeed_NotReady(t *testing.T) {
	s, _ := newTestServer(t, false)

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/vietnam-holidays.ics", nil))

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if body != NotReadyMessage {
		t.Errorf("body = %q, want %q", body, NotReadyMessage)
	}
}

func TestFeed(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/vietnam-holidays.ics", nil))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != sampleICS {
		t.Errorf("body = %q, want cached ICS", body)
	}

	headers := map[string]string{
		"Content-Type":        "text/calendar; charset=utf-8",
		"Content-Disposition": `attachment; filename="vietnam-holidays.ics"`,
		"Cache-Control":       "public, max-age=3600",
	}
	for name, want := range headers {
		if got := resp.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("response has no request ID")
	}
}

func TestFeed_ETag(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/vietnam-holidays.ics", nil))
	tag := resp.Header.Get("ETag")
	if tag == "" {
		t.Fatal("feed response has no ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/vietnam-holidays.ics", nil)
	req.Header.Set("If-None-Match", tag)
	resp, _ = do(t, s, req)
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", resp.StatusCode)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	s, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, _ := do(t, s, req)

	if got := resp.Header.Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("%s = %q, want abc-123", HeaderRequestID, got)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name        string
		withData    bool
		wantRecords int
		wantUpdate  string
	}{
		{"before first build", false, 0, ""},
		{"with data", true, 2, "2026-10-19T03:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.withData)

			resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			var health HealthResponse
			if err := json.Unmarshal([]byte(body), &health); err != nil {
				t.Fatalf("decoding health: %v", err)
			}
			if health.Status != "ok" {
				t.Errorf("status = %q, want ok", health.Status)
			}
			if health.HasData != tt.withData {
				t.Errorf("hasData = %v, want %v", health.HasData, tt.withData)
			}
			if health.Records != tt.wantRecords {
				t.Errorf("records = %d, want %d", health.Records, tt.wantRecords)
			}
			if tt.wantUpdate == "" {
				if health.LastUpdate != nil {
					t.Errorf("lastUpdate = %q, want null", *health.LastUpdate)
				}
			} else if health.LastUpdate == nil || *health.LastUpdate != tt.wantUpdate {
				t.Errorf("lastUpdate = %v, want %s", health.LastUpdate, tt.wantUpdate)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, true)

	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	for _, want := range []string{`href="/vietnam-holidays.ics"`, "共 2 个节假日 (2026, 2025 年)", "上次更新: 2026-10-19"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestUpdate(t *testing.T) {
	s, f := newTestServer(t, false)

	resp, body := do(t, s, httptest.NewRequest(http.MethodPost, "/update", nil))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", resp.StatusCode, body)
	}
	if f.calls != 1 {
		t.Errorf("Refresh called %d times, want 1", f.calls)
	}

	var update UpdateResponse
	if err := json.Unmarshal([]byte(body), &update); err != nil {
		t.Fatalf("decoding update: %v", err)
	}
	if update.Status != "updated" || update.Records != 2 {
		t.Errorf("update = %+v", update)
	}

	// The feed is now served
	resp, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/vietnam-holidays.ics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("feed status after update = %d, want 200", resp.StatusCode)
	}
}

func TestUpdate_Failure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"no records", holiday.ErrNoRecords, http.StatusBadGateway},
		{"other error", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, f := newTestServer(t, true)
			f.err = tt.err

			resp, body := do(t, s, httptest.NewRequest(http.MethodPost, "/update", nil))
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}

			var update UpdateResponse
			if err := json.Unmarshal([]byte(body), &update); err != nil {
				t.Fatalf("decoding update: %v", err)
			}
			if update.Status != "failed" || update.Error == "" {
				t.Errorf("update = %+v, want failed with error", update)
			}
			// Previous data is still reported and served
			if update.Records != 2 || update.LastUpdate == nil {
				t.Errorf("update = %+v, want previous snapshot kept", update)
			}
		})
	}
}

func TestUpdate_RateLimited(t *testing.T) {
	f := &fakeRefresher{cache: &feed.Cache{}}
	cfg := DefaultConfig()
	cfg.UpdateLimit = 2
	s := New(cfg, f)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := do(t, s, httptest.NewRequest(http.MethodPost, "/update", nil))
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
	if f.calls != 2 {
		t.Errorf("Refresh called %d times, want 2", f.calls)
	}
}

func TestCustomFeedPath(t *testing.T) {
	f := &fakeRefresher{cache: &feed.Cache{}}
	f.cache.Store(sampleSnapshot())
	cfg := DefaultConfig()
	cfg.FeedPath = "/calendars/vn.ics"
	s := New(cfg, f)

	resp, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/calendars/vn.ics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="vn.ics"` {
		t.Errorf("Content-Disposition = %q", got)
	}

	resp, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/vietnam-holidays.ics", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("default path status = %d, want 404", resp.StatusCode)
	}
}

func TestShutdown(t *testing.T) {
	s, _ := newTestServer(t, true)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Listen("127.0.0.1:0")
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Listen() returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Listen() did not return after Shutdown()")
	}
}
