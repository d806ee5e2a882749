package actions

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/logging/apiv2/loggingpb"
	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/rs/zerolog"
)

// LogsAction prints load balancer request entries matched by the lab's
// security policy, either from a lookback window or as a live stream.
type LogsAction struct {
	log  zerolog.Logger
	pctx *config.LabContext

	// Status filters on the response status, 0 matches any.
	Status int
	// DeniedOnly narrows Status to the configured deny status.
	DeniedOnly bool
	// Since overrides the configured lookback window.
	Since time.Duration
	// Limit overrides the configured entry cap.
	Limit int
	// Follow streams new entries until interrupted.
	Follow bool
}

func NewLogs(log zerolog.Logger, pctx *config.LabContext) *LogsAction {
	return &LogsAction{
		log:  log,
		pctx: pctx,
	}
}

func (a *LogsAction) Run(ctx context.Context) error {
	s := a.pctx.Settings()

	status := a.Status
	if a.DeniedOnly {
		status = s.DenyStatus
	}

	if a.Follow {
		// The tail API rejects timestamp clauses, no window here.
		filter := gcp.BuildPolicyLogFilter(s.PolicyName, status, time.Time{})

		a.log.Info().Str("filter", filter).Msg("streaming matching entries, interrupt to stop")

		err := gcp.TailPolicyLogs(ctx, a.pctx, s.Project, filter, func(e *loggingpb.LogEntry) error {
			a.printEntry(e)

			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	since := a.Since
	if since == 0 {
		since = s.LogLookback
	}

	limit := a.Limit
	if limit == 0 {
		limit = s.LogLimit
	}

	filter := gcp.BuildPolicyLogFilter(s.PolicyName, status, time.Now().Add(-since))

	entries, err := gcp.QueryPolicyLogs(ctx, a.pctx, s.Project, filter, limit)
	if err != nil {
		return err
	}

	for _, e := range entries {
		a.printEntry(e)
	}

	if len(entries) == 0 {
		a.log.Info().Msg("no matching entries")
	}

	a.log.Info().Str("url", gcp.LogsExplorerURL(s.Project, filter)).Msg("inspect in logs explorer")

	return nil
}

func (a *LogsAction) printEntry(e *loggingpb.LogEntry) {
	req := e.GetHttpRequest()
	_, outcome := gcp.EntryPolicyOutcome(e)

	ev := a.log.Info().
		Time("ts", e.GetTimestamp().AsTime()).
		Int32("status", req.GetStatus()).
		Str("method", req.GetRequestMethod()).
		Str("ip", req.GetRemoteIp()).
		Str("url", req.GetRequestUrl())

	if outcome != "" {
		ev = ev.Str("outcome", outcome)
	}

	ev.Msg("request")
}
