package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Reset cached config so each test sees its own environment.
	appConfig = nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	out, err := runCommand(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "gymgate 1.2.3")
}

func TestGetCommandEndToEnd(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/usuarios", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"nombre":"Ana"}]`))
	}))
	defer backend.Close()

	t.Setenv("GYMGATE_API_BASE_URL", backend.URL)

	out, err := runCommand(t, "get", "/api/usuarios", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"nombre": "Ana"`)
}

func TestGetCommandRejectsBadFormat(t *testing.T) {
	t.Setenv("GYMGATE_API_BASE_URL", "http://localhost:3000")

	_, err := runCommand(t, "get", "/api/usuarios", "-o", "xml")
	require.ErrorContains(t, err, "unsupported output format")
}

func TestStatsCommandTable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer backend.Close()

	t.Setenv("GYMGATE_API_BASE_URL", backend.URL)

	out, err := runCommand(t, "stats", "-o", "table")
	require.NoError(t, err)
	require.Contains(t, out, "requests")
}

func TestPostCommandRejectsInvalidJSON(t *testing.T) {
	t.Setenv("GYMGATE_API_BASE_URL", "http://localhost:3000")

	_, err := runCommand(t, "post", "/api/usuarios", "-d", "{not json")
	require.ErrorContains(t, err, "not valid JSON")
}
