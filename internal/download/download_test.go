package download

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsql/internal/logging"
)

func TestClientRun(t *testing.T) {
	t.Parallel()

	t.Run("downloads and validates all files", func(t *testing.T) {
		t.Parallel()

		content := map[string]string{
			"orders.csv":        "orderID,customerID\n10248,VINET\n",
			"order-details.csv": "orderID,productID,quantity\n10248,11,12\n",
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := content[filepath.Base(r.URL.Path)]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, body)
		}))
		defer srv.Close()

		dir := filepath.Join(t.TempDir(), "spreadsheets")
		client := NewClient(srv.URL+"/northwind/", dir, []string{"orders.csv", "order-details.csv"},
			srv.Client(), logging.New(io.Discard, "ERROR"))

		require.NoError(t, client.Run(context.Background()))

		for name, want := range content {
			got, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			assert.Equal(t, want, string(got))
		}
	})

	t.Run("overwrites an existing copy", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "fresh")
		}))
		defer srv.Close()

		dir := t.TempDir()
		dest := filepath.Join(dir, "orders.csv")
		require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer"), 0o600))

		client := NewClient(srv.URL, dir, []string{"orders.csv"},
			srv.Client(), logging.New(io.Discard, "ERROR"))
		require.NoError(t, client.Run(context.Background()))

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(got))
	})

	t.Run("aborts on non-2xx status", func(t *testing.T) {
		t.Parallel()

		requests := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		dir := t.TempDir()
		client := NewClient(srv.URL, dir, []string{"orders.csv", "order-details.csv"},
			srv.Client(), logging.New(io.Discard, "ERROR"))

		err := client.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 500")
		assert.Equal(t, 1, requests, "first failure must abort the run, no retry")
	})

	t.Run("validation rejects empty downloads", func(t *testing.T) {
		t.Parallel()

		// 200 with an empty body produces a zero-byte file; the validation
		// pass must refuse to treat it as valid.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		dir := t.TempDir()
		client := NewClient(srv.URL, dir, []string{"orders.csv"},
			srv.Client(), logging.New(io.Discard, "ERROR"))

		err := client.Run(context.Background())
		require.ErrorIs(t, err, ErrFileMissingOrEmpty)
		assert.Contains(t, err.Error(), "orders.csv")
	})
}

func TestClientValidate(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		client := NewClient(DefaultBaseURL, t.TempDir(), []string{"orders.csv"},
			nil, logging.New(io.Discard, "ERROR"))
		err := client.Validate()
		require.ErrorIs(t, err, ErrFileMissingOrEmpty)
	})

	t.Run("all files present", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"), []byte("a,b\n"), 0o600))
		client := NewClient(DefaultBaseURL, dir, []string{"orders.csv"},
			nil, logging.New(io.Discard, "ERROR"))
		require.NoError(t, client.Validate())
	})
}
