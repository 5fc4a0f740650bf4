package main

import (
	"io"
	"os"
	"testing"
	"time"

	"mercator-hq/windowlimit/pkg/server"
	"mercator-hq/windowlimit/pkg/telemetry/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "error", Format: "text", Writer: io.Discard})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	return logger
}

func waitForServer(t *testing.T, s *server.Server) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != "" && s.IsRunning() {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server did not start")
	return ""
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
