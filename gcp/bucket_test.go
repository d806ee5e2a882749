package gcp

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadReport(t *testing.T) {
	ctx := context.Background()

	var body []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body, _ = io.ReadAll(r.Body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "armorlab/reports/run.json", "bucket": "report-bucket"}`))
	})

	pctx := newTestContext(t, mux)

	url, err := UploadReport(ctx, pctx, "report-bucket", "armorlab/reports/run.json", []byte(`{"status":"ok"}`))
	require.NoError(t, err)

	assert.Equal(t, "gs://report-bucket/armorlab/reports/run.json", url)
	assert.Contains(t, string(body), `{"status":"ok"}`)
}
