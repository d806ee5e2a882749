package gcp

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/cloudresourcemanager/v1"
)

func TestCheckProject(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/projects/demo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &cloudresourcemanager.Project{
			ProjectId:      "demo",
			ProjectNumber:  123456,
			LifecycleState: ProjectActive,
		})
	})
	mux.HandleFunc("/v1/projects/doomed", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &cloudresourcemanager.Project{
			ProjectId:      "doomed",
			LifecycleState: "DELETE_REQUESTED",
		})
	})
	mux.HandleFunc("/v1/projects/ghost", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, 403, "forbidden")
	})

	pctx := newTestContext(t, mux)

	proj, err := CheckProject(ctx, pctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), proj.ProjectNumber)

	_, err = CheckProject(ctx, pctx, "doomed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")

	_, err = CheckProject(ctx, pctx, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or caller lacks permissions")
}
