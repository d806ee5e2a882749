package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/edgelabs/armorlab/internal/config"
)

// UploadReport writes a run report object to the given bucket and returns its
// gs:// URL. The bucket must already exist.
func UploadReport(ctx context.Context, pctx *config.LabContext, bucket, object string, data []byte) (string, error) {
	cli, err := pctx.StorageClient(ctx)
	if err != nil {
		return "", fmt.Errorf("error creating gcp storage client: %w", err)
	}

	w := cli.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	// Reports are tiny, skip the resumable upload session.
	w.ChunkSize = 0

	_, err = io.Copy(w, bytes.NewReader(data))
	if err != nil {
		_ = w.Close()

		return "", fmt.Errorf("error uploading report to bucket '%s': %w", bucket, err)
	}

	err = w.Close()
	if err != nil {
		return "", fmt.Errorf("error uploading report to bucket '%s': %w", bucket, err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}
