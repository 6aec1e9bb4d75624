// Package helpers drives a reconciler instance from integration tests.
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	reconciler "github.com/ehving/noticesystem-sub000/internal/app"
	"github.com/ehving/noticesystem-sub000/internal/app/storage"
	"github.com/ehving/noticesystem-sub000/internal/config"
)

// ServerTestHelper manages the reconciler lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *reconciler.ReconcilerApp
	factory    *storage.MemoryFactory
}

// NewServerTestHelper creates a helper serving on a free local port.
func NewServerTestHelper(ctx context.Context, configPath string) *ServerTestHelper {
	port := FreePort()
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    fmt.Sprintf("127.0.0.1:%d", port),
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		factory:    storage.NewMemoryFactory(),
	}
}

// FreePort asks the kernel for an unused TCP port.
func FreePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port
}

// Storage returns the in-memory stores behind the server.
func (s *ServerTestHelper) Storage() *storage.MemoryFactory {
	return s.factory
}

// StartServer loads the configuration and starts the reconciler in the background.
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := reconciler.NewReconcilerApp(s.ctx,
		reconciler.WithConfig(cfg),
		reconciler.WithAddress(s.address),
		reconciler.WithStorageFactory(s.factory),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = app

	go func() {
		if err := app.Start(); err != nil {
			// The test fails when it tries to connect.
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()
	return nil
}

// StopServer gracefully stops the reconciler
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits for the server to be ready to accept requests
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/health")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// Get issues a GET against path and returns the status and body.
func (s *ServerTestHelper) Get(path string) (int, []byte) {
	resp, err := s.httpClient.Get(s.baseURL + path)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return readResponse(resp)
}

// Post issues a POST with body encoded as JSON (nil sends no body).
func (s *ServerTestHelper) Post(path string, body any) (int, []byte) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		reader = bytes.NewReader(data)
	}
	resp, err := s.httpClient.Post(s.baseURL+path, "application/json", reader)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return readResponse(resp)
}

// DecodeJSON unmarshals data into out and fails the running test on error.
func DecodeJSON(data []byte, out any) {
	gomega.Expect(json.Unmarshal(data, out)).To(gomega.Succeed(), string(data))
}

func readResponse(resp *http.Response) (int, []byte) {
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return resp.StatusCode, data
}

// WriteConfigYAML writes an in-memory deployment configuration into dir.
// extra is appended verbatim and must not repeat a top-level key.
func WriteConfigYAML(dir, extra string) string {
	content := `storage:
  type: memory

sync:
  defaultSource: MYSQL
  workers: 2
  inlineCheck: true
  logMode: ALL

retry:
  enabled: true
  interval: 1h

conflict:
  enabled: true
  interval: 1h
  notifyCooldown: 30m
  detectLookback: 24h

server:
  address: "127.0.0.1:0"
` + extra

	configPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return configPath
}
