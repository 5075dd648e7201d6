package biz

import (
	"context"
	"time"

	"esim-service/internal/constants"
	"esim-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// StatusUseCase aggregates eSIM status across all registered providers.
type StatusUseCase struct {
	providers []ProviderClient // fixed priority order, used to break freshness ties
	conf      *EsimConfig
	log       *log.Helper
	metrics   *metrics.EsimMetrics
}

// NewStatusUseCase creates the status aggregation UseCase
func NewStatusUseCase(providers []ProviderClient, conf *EsimConfig, logger log.Logger) *StatusUseCase {
	return &StatusUseCase{
		providers: providers,
		conf:      conf,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Check queries every provider concurrently and returns the freshest match.
// Each provider call runs under its own timeout, so a slow provider never
// delays evaluation of the others. When nothing is found the result carries
// status UNKNOWN; Check never fails because of upstream errors.
func (uc *StatusUseCase) Check(ctx context.Context, iccid string) (*EsimStatus, error) {
	startTime := time.Now()
	results := make([]*EsimStatus, len(uc.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range uc.providers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, uc.conf.StatusTimeout)
			defer cancel()

			st, err := p.FetchStatus(cctx, iccid)
			if err != nil {
				// A timed-out or erroring provider is a final answer for this
				// attempt; the other providers still count.
				if IsUpstreamNotFound(err) {
					uc.log.Infof("eSIM not found on %s: iccid=%s", p.Name(), iccid)
				} else {
					uc.log.Warnf("FetchStatus failed on %s: iccid=%s, kind=%s, error=%v", p.Name(), iccid, UpstreamKind(err), err)
				}
				return nil
			}
			results[i] = st
			return nil
		})
	}
	_ = g.Wait()

	best := selectFreshest(results)
	if uc.metrics != nil {
		uc.metrics.StatusCheckDuration.Observe(time.Since(startTime).Seconds())
	}
	if best == nil {
		uc.log.Warnf("eSIM not found on any provider: iccid=%s", iccid)
		if uc.metrics != nil {
			uc.metrics.StatusCheckTotal.WithLabelValues(constants.ResultNotFound).Inc()
		}
		return &EsimStatus{
			ICCID:       iccid,
			Status:      constants.EsimStatusUnknown,
			LastUpdated: time.Now(),
		}, nil
	}

	if best.LastUpdated.IsZero() {
		best.LastUpdated = time.Now()
	}
	uc.log.Infof("Status check done: iccid=%s, provider=%s, status=%s, took=%s",
		iccid, best.Provider, best.Status, time.Since(startTime))
	if uc.metrics != nil {
		uc.metrics.StatusCheckTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	return best, nil
}

// selectFreshest is the single provider-selection point: the match with the
// most recent LastUpdated wins; matches without a freshness timestamp rank
// behind those with one; remaining ties keep registration (priority) order.
func selectFreshest(results []*EsimStatus) *EsimStatus {
	var best *EsimStatus
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil {
			best = r
			continue
		}
		if r.LastUpdated.After(best.LastUpdated) {
			best = r
		}
	}
	return best
}
