package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T, startURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(dir, "cars.db"))
	t.Setenv("START_URL", startURL)
	t.Setenv("LOG_FILE", filepath.Join(dir, "logs", "scraper.log"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PHONE_STRATEGY", "none")
	t.Setenv("DUMP_DIR", filepath.Join(dir, "dumps"))
	t.Setenv("DUMP_FORMAT", "csv")
	t.Setenv("RETRY_DELAY", "1ms")
	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatsOnEmptyDatabase(t *testing.T) {
	setTestEnv(t, "https://auto.ria.com/uk/car/used/")

	out, err := runCmd(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total listings stored : 0")
}

func TestMigrateCreatesDatabase(t *testing.T) {
	dir := setTestEnv(t, "https://auto.ria.com/uk/car/used/")

	_, err := runCmd(t, "migrate")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "cars.db"))
	assert.FileExists(t, filepath.Join(dir, "logs", "scraper.log"))
}

func TestInvalidConfigFails(t *testing.T) {
	setTestEnv(t, "https://auto.ria.com/uk/car/used/")
	t.Setenv("SCRAPE_TIME", "noon")

	_, err := runCmd(t, "migrate")
	assert.Error(t, err)
}

func TestTestNowCrawlsAndDumps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/uk/car/used/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(`<a class="m-link-ticket" href="/uk/auto_lanos_1.html">Lanos</a>`))
			return
		}
		_, _ = w.Write([]byte(`<html></html>`))
	})
	mux.HandleFunc("/uk/auto_lanos_1.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<h1 class="head">Daewoo Lanos 2008</h1><div class="price_value"><strong>3 200 $</strong></div>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := setTestEnv(t, server.URL+"/uk/car/used/")

	_, err := runCmd(t, "--test-now")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "dumps"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	out, err := runCmd(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total listings stored : 1")
	assert.Contains(t, out, "Daewoo Lanos 2008")
}

func TestCrawlStartUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	setTestEnv(t, server.URL+"/uk/car/used/")

	_, err := runCmd(t, "crawl")
	assert.Error(t, err)
}
