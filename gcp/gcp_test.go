package gcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/option"
)

// newTestContext builds a LabContext whose API clients talk to a local fake.
func newTestContext(t *testing.T, h http.Handler) *config.LabContext {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return config.NewLabContext(nil, nil, option.WithEndpoint(srv.URL), option.WithoutAuthentication())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func apiError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	fmt.Fprintf(w, `{"error": {"code": %d, "message": %q}}`, code, msg)
}
