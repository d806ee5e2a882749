package gcp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"
)

func TestBackendServiceHealth(t *testing.T) {
	ctx := context.Background()

	groups := map[string][]*compute.HealthStatus{
		"group-a": {
			{HealthState: HealthStateHealthy},
			{HealthState: "UNHEALTHY"},
		},
		"group-b": {
			{HealthState: HealthStateHealthy},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.BackendService{
			Name: "web-backend",
			Backends: []*compute.Backend{
				{Group: "group-a"},
				{Group: "group-b"},
			},
		})
	})
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend/getHealth", func(w http.ResponseWriter, r *http.Request) {
		var ref compute.ResourceGroupReference

		require.NoError(t, json.NewDecoder(r.Body).Decode(&ref))

		writeJSON(t, w, &compute.BackendServiceGroupHealth{HealthStatus: groups[ref.Group]})
	})

	pctx := newTestContext(t, mux)

	health, err := BackendServiceHealth(ctx, pctx, "demo", "web-backend")
	require.NoError(t, err)

	assert.Equal(t, 2, health.Healthy)
	assert.Equal(t, 3, health.Total)
	assert.Equal(t, "2/3 healthy", health.String())
}

func TestBackendServiceHealthMissingService(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, 404, "not found")
	})

	pctx := newTestContext(t, mux)

	_, err := BackendServiceHealth(ctx, pctx, "demo", "missing")
	require.Error(t, err)
	assert.True(t, ErrIs404(err))
}

func TestAttachAndDetachSecurityPolicy(t *testing.T) {
	ctx := context.Background()

	var gotRefs []string

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend/setSecurityPolicy", func(w http.ResponseWriter, r *http.Request) {
		var ref compute.SecurityPolicyReference

		require.NoError(t, json.NewDecoder(r.Body).Decode(&ref))

		gotRefs = append(gotRefs, ref.SecurityPolicy)

		writeJSON(t, w, &compute.Operation{Name: "op-3", Status: OperationDone})
	})
	mux.HandleFunc("/projects/demo/global/operations/op-3/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.Operation{Name: "op-3", Status: OperationDone})
	})

	pctx := newTestContext(t, mux)
	policyURL := SecurityPolicyURL("demo", "lab-policy")

	require.NoError(t, AttachSecurityPolicy(ctx, pctx, "demo", "web-backend", policyURL))
	require.NoError(t, DetachSecurityPolicy(ctx, pctx, "demo", "web-backend"))

	require.Len(t, gotRefs, 2)
	assert.Equal(t, policyURL, gotRefs[0])
	assert.Empty(t, gotRefs[1])
}
