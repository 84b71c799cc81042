package hipolabs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicompass/unicompass/internal/adapter/directory/hipolabs"
	"github.com/unicompass/unicompass/internal/config"
)

func directoryConfig(baseURL string) config.Config {
	return config.Config{DirectoryBaseURL: baseURL, DirectoryTimeout: 2 * time.Second}
}

func TestSearch_MapsEntries(t *testing.T) {
	t.Parallel()
	var gotCountry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCountry = r.URL.Query().Get("country")
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"name": "University of Delhi", "state-province": "Delhi"},
			{"name": "Anna University"},
		})
	}))
	defer srv.Close()

	entries, err := hipolabs.New(directoryConfig(srv.URL)).Search(context.Background(), "India")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "India", gotCountry)
	assert.Equal(t, "University of Delhi", entries[0].Name)
	assert.Equal(t, "Delhi", entries[0].StateProvince)
	assert.Empty(t, entries[1].StateProvince)
}

func TestSearch_CapsAtFiftyEntries(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		payload := make([]map[string]string, 80)
		for i := range payload {
			payload[i] = map[string]string{"name": "U"}
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	entries, err := hipolabs.New(directoryConfig(srv.URL)).Search(context.Background(), "United States")
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}

func TestSearch_Non200IsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := hipolabs.New(directoryConfig(srv.URL)).Search(context.Background(), "India")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestSearch_EscapesCountry(t *testing.T) {
	t.Parallel()
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRaw = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]map[string]string{})
	}))
	defer srv.Close()

	_, err := hipolabs.New(directoryConfig(srv.URL)).Search(context.Background(), "United Kingdom")
	require.NoError(t, err)
	assert.Equal(t, "country=United+Kingdom", gotRaw)
}
