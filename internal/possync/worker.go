package possync

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/loyaltyworks/tally/internal/clock"
	customerdomain "github.com/loyaltyworks/tally/internal/customer/domain"
	ledgerdomain "github.com/loyaltyworks/tally/internal/ledger/domain"
	"github.com/loyaltyworks/tally/internal/observability/metrics"
	"github.com/loyaltyworks/tally/internal/pos"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Client     pos.Client
	Customers  customerdomain.Repository
	LedgerSvc  ledgerdomain.Service
	ProgramSvc programdomain.Service
	Clock      clock.Clock
	Config     Config `optional:"true"`
	Metrics    *metrics.SyncMetrics
}

type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	client     pos.Client
	customers  customerdomain.Repository
	ledgerSvc  ledgerdomain.Service
	programSvc programdomain.Service
	clock      clock.Clock
	cfg        Config
	metrics    *metrics.SyncMetrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("possync.worker"),
		genID:      p.GenID,
		client:     p.Client,
		customers:  p.Customers,
		ledgerSvc:  p.LedgerSvc,
		programSvc: p.ProgramSvc,
		clock:      p.Clock,
		cfg:        p.Config.withDefaults(),
		metrics:    p.Metrics,
	}
}

// RunForever polls the POS on the configured interval until ctx ends.
func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx, TriggerSchedule); err != nil {
			w.log.Warn("reconciliation run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes one reconciliation pass over today's sales. The pass is
// idempotent by construction: re-running over the same window re-derives
// the same states, and the ledger absorbs duplicates.
func (w *Worker) RunOnce(ctx context.Context, trigger string) (RunSummary, error) {
	started := w.clock.Now()
	since := startOfDay(started)

	runID, err := w.startRun(ctx, trigger, started)
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{RunID: runID}

	sales, err := w.client.ListRecentSales(ctx, since, w.cfg.PageSize)
	if err != nil {
		summary.Error = err.Error()
		if errors.Is(err, pos.ErrRateLimited) {
			summary.Aborted = true
			w.metrics.ObserveRun("rate_limited", w.clock.Now().Sub(started))
		} else {
			w.metrics.ObserveRun("failed", w.clock.Now().Sub(started))
		}
		_ = w.finishRun(ctx, runID, summary, w.clock.Now())
		return summary, err
	}

	for _, sale := range sales {
		// The provider pages by creation time but can overfetch; bound
		// the work to today's window.
		if sale.CreatedAt.Before(since) {
			continue
		}
		summary.Processed++

		outcome, err := w.processSale(ctx, sale)
		if err != nil {
			if errors.Is(err, pos.ErrRateLimited) {
				// Rate limiting aborts the remaining batch; the next
				// scheduled run is the back-off.
				summary.Aborted = true
				summary.Error = err.Error()
				w.log.Warn("rate limited mid-batch, aborting", zap.String("sale_id", sale.ID))
				break
			}
			summary.Failed++
			w.metrics.IncSaleProcessed("failed")
			w.log.Error("sale processing failed",
				zap.String("sale_id", sale.ID),
				zap.Error(err),
			)
			continue
		}

		w.metrics.IncSaleProcessed(outcome)
		switch outcome {
		case "applied", "revoked":
			summary.Applied++
		default:
			summary.Skipped++
		}
	}

	finished := w.clock.Now()
	if err := w.finishRun(ctx, runID, summary, finished); err != nil {
		w.log.Warn("failed to record sync run", zap.Error(err))
	}

	result := "ok"
	if summary.Aborted {
		result = "rate_limited"
	}
	w.metrics.ObserveRun(result, finished.Sub(started))
	w.log.Info("reconciliation run finished",
		zap.String("trigger", trigger),
		zap.Int("processed", summary.Processed),
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Bool("aborted", summary.Aborted),
	)
	return summary, nil
}

func (w *Worker) processSale(ctx context.Context, sale pos.RawSale) (string, error) {
	observed := MapExternalStatus(sale.Status)
	saleType := MapSaleType(sale.Type)

	customer, err := w.resolveCustomer(ctx, sale)
	if err != nil {
		return "", err
	}

	final, err := w.persistSale(ctx, sale, observed, saleType, customer)
	if err != nil {
		return "", err
	}

	if customer == nil {
		// No matching profile is a valid, expected outcome.
		w.log.Debug("sale has no matching user, accrual skipped",
			zap.String("sale_id", sale.ID),
		)
		return "skipped", nil
	}

	return w.driveAccrual(ctx, sale, saleType, final, customer.ID)
}

func (w *Worker) resolveCustomer(ctx context.Context, sale pos.RawSale) (*customerdomain.Customer, error) {
	last10 := customerdomain.NormalizePhone(sale.CustomerPhone)
	if last10 == "" {
		return nil, nil
	}
	return w.customers.FindByPhone(ctx, w.db, last10)
}

// persistSale records the sale and returns the non-regressed lifecycle
// state. A persisted state that already ranks higher than the observation
// wins, and the discrepancy is logged: POS events can arrive out of order.
func (w *Worker) persistSale(
	ctx context.Context,
	sale pos.RawSale,
	observed Status,
	saleType string,
	customer *customerdomain.Customer,
) (Status, error) {
	now := w.clock.Now()

	var userID *snowflake.ID
	if customer != nil {
		id := customer.ID
		userID = &id
	}

	existing, err := w.findSale(ctx, sale.ID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		result := w.db.WithContext(ctx).Exec(
			`INSERT INTO sales (id, external_id, user_id, sale_type, status, total_amount, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (external_id) DO NOTHING`,
			w.genID.Generate(),
			sale.ID,
			userID,
			saleType,
			observed,
			sale.TotalAmount,
			sale.CreatedAt,
			now,
		)
		if result.Error != nil {
			return "", result.Error
		}
		if result.RowsAffected > 0 {
			return observed, nil
		}
		// Lost an insert race with a concurrent run; fall through to
		// the update path against the winner's row.
		existing, err = w.findSale(ctx, sale.ID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return observed, nil
		}
	}

	final := Advance(existing.Status, observed)
	if final == existing.Status && observed != existing.Status {
		w.log.Warn("out-of-order POS observation ignored",
			zap.String("sale_id", sale.ID),
			zap.String("persisted", string(existing.Status)),
			zap.String("observed", string(observed)),
		)
	}
	if final == existing.Status && existing.UserID != nil {
		return final, nil
	}

	// Guarded by the previously read status so a concurrent pass cannot
	// regress the winner.
	result := w.db.WithContext(ctx).Exec(
		`UPDATE sales
		 SET status = ?, user_id = COALESCE(user_id, ?), total_amount = ?, updated_at = ?
		 WHERE external_id = ? AND status = ?`,
		final,
		userID,
		sale.TotalAmount,
		now,
		sale.ID,
		existing.Status,
	)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		// A concurrent pass advanced the row first; it owns this sale
		// for this cycle and the ledger is idempotent anyway.
		current, err := w.findSale(ctx, sale.ID)
		if err != nil {
			return "", err
		}
		if current != nil {
			return current.Status, nil
		}
	}
	return final, nil
}

func (w *Worker) findSale(ctx context.Context, externalID string) (*SaleRecord, error) {
	var record SaleRecord
	err := w.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// driveAccrual turns the resolved lifecycle state into ledger operations.
// Points accrue for every sale type at the trigger state; stamps only for
// deliveries. Cancellation reverses both.
func (w *Worker) driveAccrual(
	ctx context.Context,
	sale pos.RawSale,
	saleType string,
	final Status,
	userID snowflake.ID,
) (string, error) {
	if final == StatusCanceled {
		for _, currency := range []ledgerdomain.Currency{ledgerdomain.CurrencyPoints, ledgerdomain.CurrencyStamps} {
			if _, err := w.ledgerSvc.Revoke(ctx, ledgerdomain.RevokeRequest{
				Currency:      currency,
				Source:        ledgerdomain.SourcePOS,
				ReferenceType: ledgerdomain.ReferenceTypePurchase,
				ReferenceID:   sale.ID,
				Reason:        "sale_canceled",
			}); err != nil {
				return "", err
			}
		}
		return "revoked", nil
	}

	cfg, err := w.programSvc.Current(ctx)
	if err != nil {
		return "", err
	}
	if string(final) != cfg.TriggerState {
		return "skipped", nil
	}

	req := ledgerdomain.AccrualRequest{
		UserID:        userID,
		Source:        ledgerdomain.SourcePOS,
		ReferenceType: ledgerdomain.ReferenceTypePurchase,
		ReferenceID:   sale.ID,
		Amount:        sale.TotalAmount,
	}

	points, err := w.ledgerSvc.ApplyPoints(ctx, req)
	if err != nil {
		return "", err
	}

	applied := points.Applied
	if saleType == SaleTypeDelivery {
		stamp, err := w.ledgerSvc.ApplyStamp(ctx, req)
		if err != nil {
			return "", err
		}
		applied = applied || stamp.Applied
	}

	if applied {
		return "applied", nil
	}
	return "skipped", nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
