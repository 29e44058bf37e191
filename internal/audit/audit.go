package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"relaychat/pkg/config"
	"relaychat/pkg/logger"
	"relaychat/pkg/replicate"
	"relaychat/pkg/store"
	"relaychat/pkg/telemetry"
)

// Start starts the mirror consistency audit scheduler if enabled.
// Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Audit.Enabled {
		logger.Info("audit_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Audit.Cron
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("audit_invalid_cron", "cron", cfg.Audit.Cron)
		return nil, fmt.Errorf("invalid audit cron expression: %s", cfg.Audit.Cron)
	}

	logger.Info("audit_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured
// cron expression and sleeps until that time.
func runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("audit_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("audit_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			RunOnce()
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			RunOnce()
		case <-ctx.Done():
			logger.Info("audit_scheduler_stopping")
			return
		}
	}
}

// RunOnce checks every mirror against the canonical deduplicated view.
// A mirror diverges when it is missing a message that the canonical
// view contains. Divergence is logged and exported as a gauge; it is
// expected transiently after account creation, since new accounts do
// not receive history.
func RunOnce() {
	snap := store.Load()
	canonical := replicate.Reconcile(snap)

	keys := make(map[string]bool, len(canonical))
	for _, m := range canonical {
		keys[m.Key()] = true
	}

	divergent := 0
	for id, acct := range snap {
		seen := make(map[string]bool, len(acct.Messages))
		for _, m := range acct.Messages {
			seen[m.Key()] = true
		}
		missing := 0
		for k := range keys {
			if !seen[k] {
				missing++
			}
		}
		if missing > 0 {
			divergent++
			logger.Warn("mirror_divergence", "account", id, "missing", missing)
		}
	}

	telemetry.MirrorDivergence.Set(float64(divergent))
	logger.Info("audit_run_complete", "accounts", len(snap), "messages", len(canonical), "divergent", divergent)
}
