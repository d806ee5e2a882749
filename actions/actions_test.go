package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// newTestContext builds a LabContext whose API clients talk to a local fake.
// The returned server doubles as the load balancer the lab probes, so fakes
// report its host:port as the forwarding rule address.
func newTestContext(t *testing.T, s *config.Settings, h http.Handler) (*config.LabContext, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	pctx := config.NewLabContext(nil, s, option.WithEndpoint(srv.URL), option.WithoutAuthentication())

	return pctx, srv
}

// testSettings returns the default settings with the retry and wait knobs
// turned down so tests do not sleep.
func testSettings(t *testing.T) *config.Settings {
	t.Helper()

	s := &config.Settings{}
	require.NoError(t, defaults.Set(s))

	s.Project = "demo"
	s.HealthPollInterval = time.Millisecond
	s.ReachInterval = time.Millisecond
	s.PropagationDelay = time.Millisecond
	s.SSHWaitPeriod = 10 * time.Millisecond

	return s
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

type fakeRunner struct {
	stdout string
	err    error
}

func (r *fakeRunner) Run(context.Context, string) (stdout, stderr string, err error) {
	return r.stdout, "", r.err
}
