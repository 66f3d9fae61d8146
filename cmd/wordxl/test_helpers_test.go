package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wordxl/internal/config"
	"wordxl/internal/fakebackend"
	"wordxl/internal/history"
	"wordxl/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *fakebackend.Server
	server     *httptest.Server
	configPath string
	docsDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{
		"WORDXL_API_BASE",
		"WORDXL_UPLOAD_PATH",
		"WORDXL_CONVERT_PATH",
		"WORDXL_PROGRESS_PATH",
		"WORDXL_RESULT_PATH",
		"WORDXL_RESET_PATH",
		"WORDXL_AUTH_BASE",
		passwordEnv,
	} {
		t.Setenv(key, "")
	}

	backend := fakebackend.New(fakebackend.Options{Tick: 5 * time.Millisecond, Step: 40})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithServiceURL(srv.URL))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "wordxl.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    backend,
		server:     srv,
		configPath: configPath,
		docsDir:    t.TempDir(),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func historyEntries(t *testing.T, env *cliTestEnv) []history.Entry {
	t.Helper()
	out, _, err := runCLI(t, env, "", "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	return entries
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
