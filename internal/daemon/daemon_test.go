package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"downspout/internal/config"
	"downspout/internal/daemon"
	"downspout/internal/logging"
	"downspout/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	second, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatalf("expected second instance to be rejected")
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	addr := d.APIAddr()
	if addr == "" {
		t.Fatalf("expected API to be listening")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/api/status", addr))
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatalf("daemon should report running")
	}
	if status.LockFilePath == "" {
		t.Fatalf("lock file path should be set")
	}
}

func TestSyncEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg)

	resp, err := http.Post(fmt.Sprintf("http://%s/api/sync", d.APIAddr()), "application/json", nil)
	if err != nil {
		t.Fatalf("sync request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	get, err := http.Get(fmt.Sprintf("http://%s/api/sync", d.APIAddr()))
	if err != nil {
		t.Fatalf("get sync: %v", err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", get.StatusCode)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("hunter2"))
	d := startDaemon(t, cfg)

	url := fmt.Sprintf("http://%s/api/status", d.APIAddr())

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("unauthenticated request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer hunter2")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated request: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", authed.StatusCode)
	}

	// Health stays open for probes even with a token configured.
	health, err := http.Get(fmt.Sprintf("http://%s/api/healthz", d.APIAddr()))
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for healthz, got %d", health.StatusCode)
	}
}
