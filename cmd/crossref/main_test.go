package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAreesha/Cross-Reference-Database-System/config"
	"github.com/AAreesha/Cross-Reference-Database-System/testutil/fixtures"
)

// offlineConfigFile 写出一份不依赖外部服务的 sqlite 配置
func offlineConfigFile(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "crossref.db")
	configPath = filepath.Join(dir, "crossref.yaml")
	content := fmt.Sprintf(`
database:
  driver: sqlite
  name: %q
  max_open_conns: 1
  max_idle_conns: 1
redis:
  enabled: false
embedding:
  provider: hash
  dimensions: 64
  tokenizer: estimator
generation:
  provider: extractive
log:
  level: error
`, dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath, dbPath
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_UsageAndVersion(t *testing.T) {
	code, _, stderr := runCLI()
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")

	code, stdout, _ := runCLI("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "crossref <command>")

	code, stdout, _ = runCLI("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Cross-Reference dev")

	code, _, stderr = runCLI("frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestRun_MissingArguments(t *testing.T) {
	tests := [][]string{
		{"ingest", "vendors.csv"},
		{"search"},
		{"insert", "--partition", "db1"},
		{"migrate"},
		{"migrate", "sideways"},
	}
	for _, args := range tests {
		code, _, _ := runCLI(args...)
		assert.Equal(t, 1, code, "%v", args)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  mode: fuzzy\n"), 0o644))

	code, _, stderr := runCLI("search", "--config", path, "anything")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "fuzzy")
}

func TestRun_IngestInsertSearch(t *testing.T) {
	configPath, _ := offlineConfigFile(t)

	csvPath := filepath.Join(t.TempDir(), "vendors.csv")
	require.NoError(t, os.WriteFile(csvPath, fixtures.VendorsCSV(), 0o644))

	code, stdout, stderr := runCLI("ingest", "--config", configPath, "--partition", "db1", "--poll", "10ms", csvPath)
	require.Equal(t, 0, code, stderr)

	var status struct {
		State    string `json:"state"`
		Inserted int    `json:"inserted_count"`
		Skipped  int    `json:"skipped_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.Equal(t, "completed", status.State)
	assert.Equal(t, 2, status.Inserted)
	assert.Equal(t, 2, status.Skipped)

	code, stdout, stderr = runCLI("insert", "--config", configPath,
		"--partition", "DB3", "--id", "c-41", "--text", "Acme renewal contract 2023")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "inserted db3/c-41\n", stdout)

	code, stdout, stderr = runCLI("search", "--config", configPath, "Acme", "renewal")
	require.Equal(t, 0, code, stderr)

	var resp struct {
		Query   string   `json:"query"`
		Kind    string   `json:"kind"`
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "Acme renewal", resp.Query)
	assert.Equal(t, "results", resp.Kind)
	assert.NotEmpty(t, resp.Answer)
	assert.NotEmpty(t, resp.Sources)

	// 缓存关闭时没有历史查询
	code, stdout, _ = runCLI("suggestions", "--config", configPath)
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
}

func TestRun_IngestRejectsBadInput(t *testing.T) {
	configPath, _ := offlineConfigFile(t)

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))

	code, _, stderr := runCLI("ingest", "--config", configPath, "--partition", "db1", txt)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "INVALID_FILE_TYPE")

	csv := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a\nb\n"), 0o644))
	code, _, stderr = runCLI("ingest", "--config", configPath, "--partition", "db9", csv)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "INVALID_PARTITION")

	code, _, stderr = runCLI("ingest", "--config", configPath, "--partition", "db1", "/does/not/exist.csv")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "exist.csv")
}

func TestRun_Migrate(t *testing.T) {
	configPath, _ := offlineConfigFile(t)
	dbURL := filepath.Join(t.TempDir(), "migrate.db")

	code, stdout, stderr := runCLI("migrate", "up", "--config", configPath, "--db-url", dbURL)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Migrations complete")

	code, stdout, stderr = runCLI("migrate", "steps", "-1", "--config", configPath, "--db-url", dbURL)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Steps complete. Current version: 1")

	code, stdout, _ = runCLI("migrate", "status", "--config", configPath, "--db-url", dbURL)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Applied: 1, Pending: 1")

	code, _, stderr = runCLI("migrate", "up", "--config", configPath, "--db-type", "memory")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "memory")
}

func TestRun_HealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer healthy.Close()

	code, stdout, _ := runCLI("health", "--addr", healthy.URL)
	assert.Equal(t, 0, code)
	assert.Equal(t, "OK\n", stdout)

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
	}))
	defer unhealthy.Close()

	code, _, stderr := runCLI("health", "--addr", unhealthy.URL)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "503")
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger := initLogger(config.LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
		require.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(-1))
	}

	logger := initLogger(config.LogConfig{Level: "bogus"})
	assert.False(t, logger.Core().Enabled(-1))
}
