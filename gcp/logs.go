package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/logging/apiv2/loggingpb"
	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/iterator"
)

// BuildPolicyLogFilter renders a Cloud Logging filter for load balancer
// requests that were matched by the given security policy. A status of 0
// matches any status, a zero since matches any age.
func BuildPolicyLogFilter(policy string, status int, since time.Time) string {
	filterAnds := []string{
		`resource.type = "http_load_balancer"`,
		fmt.Sprintf(`jsonPayload.enforcedSecurityPolicy.name = "%s"`, policy),
	}

	if status > 0 {
		filterAnds = append(filterAnds, fmt.Sprintf("httpRequest.status = %d", status))
	}

	if !since.IsZero() {
		filterAnds = append(filterAnds, fmt.Sprintf(`timestamp >= "%s"`, since.UTC().Format(time.RFC3339)))
	}

	return strings.Join(filterAnds, " ")
}

// LogsExplorerURL links to the same query in the Cloud Console.
func LogsExplorerURL(project, filter string) string {
	return fmt.Sprintf("https://console.cloud.google.com/logs/query;query=%s?project=%s",
		strings.ReplaceAll(url.PathEscape(filter), "=", "%3D"), project)
}

func QueryPolicyLogs(ctx context.Context, pctx *config.LabContext, project, filter string, limit int) ([]*loggingpb.LogEntry, error) {
	cli, err := pctx.GCPLoggingClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp logging client: %w", err)
	}

	iter := cli.ListLogEntries(ctx, &loggingpb.ListLogEntriesRequest{
		ResourceNames: []string{
			"projects/" + project,
		},
		Filter:   filter,
		OrderBy:  "timestamp desc",
		PageSize: 1000,
	})

	var entries []*loggingpb.LogEntry

	for len(entries) < limit {
		entry, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}

			return nil, fmt.Errorf("getting logs error: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// TailPolicyLogs streams matching entries as they arrive, calling fn for each
// one until the context ends or fn returns an error.
func TailPolicyLogs(ctx context.Context, pctx *config.LabContext, project, filter string, fn func(*loggingpb.LogEntry) error) error {
	cli, err := pctx.GCPLoggingClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp logging client: %w", err)
	}

	stream, err := cli.TailLogEntries(ctx)
	if err != nil {
		return fmt.Errorf("tailing logs error: %w", err)
	}

	req := &loggingpb.TailLogEntriesRequest{
		ResourceNames: []string{
			"projects/" + project,
		},
		Filter: filter,
	}

	if err := stream.Send(req); err != nil {
		return fmt.Errorf("sending logs request error: %w", err)
	}

	defer stream.CloseSend() //nolint:errcheck

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			// Recv surfaces cancellation as a grpc status, not context.Canceled.
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("receiving logs error: %w", err)
		}

		for _, entry := range resp.Entries {
			err = fn(entry)
			if err != nil {
				return err
			}
		}
	}
}

// EntryPolicyOutcome digs the enforced policy name and outcome (ACCEPT or
// DENY) out of a load balancer log entry.
func EntryPolicyOutcome(e *loggingpb.LogEntry) (policy, outcome string) {
	p, ok := e.Payload.(*loggingpb.LogEntry_JsonPayload)
	if !ok || p.JsonPayload == nil {
		return "", ""
	}

	enforced := p.JsonPayload.Fields["enforcedSecurityPolicy"].GetStructValue()
	if enforced == nil {
		return "", ""
	}

	return enforced.Fields["name"].GetStringValue(), enforced.Fields["outcome"].GetStringValue()
}
