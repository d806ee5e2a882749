package actions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/edgelabs/armorlab/internal/netutil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LoadAction fires a burst of GETs at the load balancer to make denied and
// passed traffic visible in the logs, then reports the status distribution.
type LoadAction struct {
	log  zerolog.Logger
	pctx *config.LabContext
}

func NewLoad(log zerolog.Logger, pctx *config.LabContext) *LoadAction {
	return &LoadAction{
		log:  log,
		pctx: pctx,
	}
}

// Histogram maps HTTP status, 0 for transport errors, to response count.
type Histogram map[int]int

// Codes returns the recorded statuses in ascending order.
func (h Histogram) Codes() []int {
	codes := make([]int, 0, len(h))
	for code := range h {
		codes = append(codes, code)
	}

	sort.Ints(codes)

	return codes
}

func (a *LoadAction) Run(ctx context.Context) (Histogram, error) {
	s := a.pctx.Settings()

	addr, err := gcp.GlobalForwardingRuleIP(ctx, a.pctx, s.Project, s.ForwardingRule)
	if err != nil {
		return nil, err
	}

	return a.Fire(ctx, lbURL(addr))
}

// Fire issues the configured number of requests against url with bounded
// concurrency. Failed requests land in the 0 bucket instead of aborting the
// run.
func (a *LoadAction) Fire(ctx context.Context, url string) (Histogram, error) {
	s := a.pctx.Settings()

	a.log.Info().
		Str("url", url).
		Int("requests", s.LoadRequests).
		Int("concurrency", s.LoadConcurrency).
		Msg("generating load")

	var mu sync.Mutex

	hist := make(Histogram)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.LoadConcurrency)

	for i := 0; i < s.LoadRequests; i++ {
		g.Go(func() error {
			code := 0

			res, err := netutil.ProbeHTTP(ctx, url, s.ProbeTimeout)
			if err == nil {
				code = res.StatusCode
			}

			mu.Lock()
			hist[code]++
			mu.Unlock()

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	for _, code := range hist.Codes() {
		ev := a.log.Info().Int("count", hist[code])

		if code == 0 {
			ev.Msg("transport errors")
		} else {
			ev.Int("status", code).Msg("responses")
		}
	}

	a.log.Info().
		Int("total", s.LoadRequests).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("load run finished")

	return hist, nil
}
