package app

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/searchktools/fast-static/config"
	"github.com/searchktools/fast-static/core/observability"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.BindAddress = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.DocRoot = root
	cfg.PollTimeout = 20 * time.Millisecond
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func get(t *testing.T, addr, target string) string {
	t.Helper()
	var (
		conn net.Conn
		err  error
	)
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	io.WriteString(conn, "GET "+target+" HTTP/1.1\r\n\r\n")
	out, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(out)
}

func TestAppRunWritesStats(t *testing.T) {
	cfg := testConfig(t)
	cfg.StatsFile = filepath.Join(t.TempDir(), "stats.json")

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- a.Run() }()

	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port))
	if resp := get(t, addr, "/a.txt"); !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n") || !strings.HasSuffix(resp, "hello world") {
		t.Errorf("Unexpected response %q", resp)
	}
	if resp := get(t, addr, "/missing"); !strings.HasPrefix(resp, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("Unexpected response %q", resp)
	}

	a.Stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	msg, err := observability.ReadFile(cfg.StatsFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	fields := msg.GetFields()
	if got := fields["accepted"].GetNumberValue(); got != 2 {
		t.Errorf("Expected 2 accepted, got %v", got)
	}
	if got := fields["pools"].GetStructValue().GetFields()["slot_acquires"].GetNumberValue(); got != 2 {
		t.Errorf("Expected 2 slot acquires, got %v", got)
	}
	responses := fields["responses"].GetStructValue().GetFields()
	if responses["200"].GetNumberValue() != 1 || responses["404"].GetNumberValue() != 1 {
		t.Errorf("Unexpected responses %v", responses)
	}
}

func TestAppListenFailure(t *testing.T) {
	cfg := testConfig(t)

	l, err := net.Listen("tcp", net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port)))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(); err == nil {
		t.Error("Expected Run to fail on a busy port")
	}
}

func TestAppNewInvalidRoot(t *testing.T) {
	cfg := config.Default()
	cfg.DocRoot = filepath.Join(t.TempDir(), "missing")
	if _, err := New(cfg); err == nil {
		t.Error("Expected an error for a missing document root")
	}
}
