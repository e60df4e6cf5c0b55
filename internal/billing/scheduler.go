package billing

import (
	"context"
	"errors"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/dev"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/ZilDuck/membership-market/internal/event"
	"github.com/nu7hatch/gouuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"time"
)

const component = "Billing"

type Config struct {
	Period      time.Duration
	RetryDelay  time.Duration
	Concurrency int
	// Exempt accounts are never charged even if they show up in the index.
	Exempt []entity.Account
}

// Recorder keeps the append-only log of billing runs.
type Recorder interface {
	Save(run entity.BillingRun) error
}

type Scheduler struct {
	registry Registry
	recorder Recorder
	cfg      Config
	clock    func() time.Time
}

type Option func(s *Scheduler)

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func NewScheduler(registry Registry, recorder Recorder, cfg Config, opts ...Option) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	s := &Scheduler{registry: registry, recorder: recorder, cfg: cfg, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ownerBatch holds the snapshot positions of every asset of one owner, in
// snapshot order.
type ownerBatch struct {
	owner     entity.Account
	positions []int
}

type outcome uint8

const (
	pending outcome = iota
	skipped
	charged
	burnt
	failed
)

// slot is the result of one snapshot asset. Each slot is written by the
// goroutine processing its owner only.
type slot struct {
	outcome  outcome
	lost     bool
	failures []dev.Error
}

// Due lists the snapshot assets a run started now would try to charge.
func (s *Scheduler) Due(ctx context.Context) ([]entity.Asset, error) {
	now := s.clock()

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]entity.Asset, 0)
	for _, asset := range snapshot {
		if !s.exempt(asset.Owner) && asset.Due(now, s.cfg.Period) {
			due = append(due, asset)
		}
	}
	return due, nil
}

// Run performs one billing cycle over a snapshot of the active memberships.
// Owners are processed in parallel, each owner at most once. A cancelled
// context stops further charges; the partial run is still recorded. The
// result lists follow snapshot order.
func (s *Scheduler) Run(ctx context.Context) (entity.BillingRun, error) {
	now := s.clock()
	run := entity.NewBillingRun(newRunId(), now, s.cfg.Period)

	zap.L().With(zap.String("run", run.Id), zap.Time("now", now)).Info("Billing: Run started")

	snapshot, err := s.snapshot(ctx)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Billing: Failed to read active memberships")
		return run, err
	}

	batches := group(snapshot)
	slots := make([]slot, len(snapshot))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i := range batches {
		batch := batches[i]
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.processOwner(ctx, snapshot, batch, slots, now)
			return nil
		})
	}
	_ = g.Wait()

	for i, sl := range slots {
		asset := snapshot[i]
		switch sl.outcome {
		case charged:
			run.ChargedMembers = append(run.ChargedMembers, asset.Owner)
			run.ChargedNFTIds = append(run.ChargedNFTIds, asset.Id)
		case burnt:
			run.BurntNFTs = append(run.BurntNFTs, asset.Id)
			if sl.lost {
				run.LostMembers = append(run.LostMembers, asset.Owner)
			}
		case skipped:
			run.Skipped = append(run.Skipped, asset.Id)
		}
		run.Failures = append(run.Failures, sl.failures...)
	}

	run.Cancelled = ctx.Err() != nil
	run.FinishedAt = s.clock()

	zap.L().With(
		zap.String("run", run.Id),
		zap.Int("charged", len(run.ChargedNFTIds)),
		zap.Int("burnt", len(run.BurntNFTs)),
		zap.Int("lost", len(run.LostMembers)),
		zap.Int("failures", len(run.Failures)),
		zap.Bool("cancelled", run.Cancelled),
	).Info("Billing: Run finished")

	if s.recorder != nil {
		if err := s.recorder.Save(run); err != nil {
			zap.L().With(zap.Error(err), zap.String("run", run.Id)).Error("Billing: Failed to record run")
		}
	}
	event.EmitEvent(event.BillingRunCompletedEvent, run)

	return run, ctx.Err()
}

func (s *Scheduler) snapshot(ctx context.Context) ([]entity.Asset, error) {
	var snapshot []entity.Asset
	err := retry(ctx, s.cfg.RetryDelay, "ActiveMemberships", func() (err error) {
		snapshot, err = s.registry.ActiveMemberships()
		return
	})
	return snapshot, err
}

func group(snapshot []entity.Asset) []ownerBatch {
	index := make(map[entity.Account]int)
	batches := make([]ownerBatch, 0)
	for pos, asset := range snapshot {
		i, ok := index[asset.Owner]
		if !ok {
			i = len(batches)
			index[asset.Owner] = i
			batches = append(batches, ownerBatch{owner: asset.Owner})
		}
		batches[i].positions = append(batches[i].positions, pos)
	}
	return batches
}

// processOwner charges the first due asset of an owner and skips the rest.
func (s *Scheduler) processOwner(ctx context.Context, snapshot []entity.Asset, batch ownerBatch, slots []slot, now time.Time) {
	processed := s.exempt(batch.owner)

	for _, pos := range batch.positions {
		asset := snapshot[pos]
		sl := &slots[pos]

		if processed || !asset.Due(now, s.cfg.Period) {
			sl.outcome = skipped
			continue
		}
		if ctx.Err() != nil {
			return
		}

		result, err := s.charge(ctx, asset, now)
		switch {
		case err == nil:
		case errors.Is(err, entity.ErrNotOwner) || errors.Is(err, entity.ErrIneligibleParty):
			// changed hands or revoked since the snapshot
			zap.L().With(zap.Uint64("tokenId", asset.Id), zap.String("owner", asset.Owner.String())).Info("Billing: Membership already inactive")
			sl.outcome = skipped
			continue
		case ctx.Err() != nil:
			return
		default:
			zap.L().With(zap.Error(err), zap.Uint64("tokenId", asset.Id), zap.String("owner", asset.Owner.String())).Error("Billing: Charge failed")
			sl.outcome = failed
			sl.failures = append(sl.failures, dev.NewError(component, "ChargeForMembership", err, map[string]interface{}{
				"tokenId": asset.Id,
				"owner":   asset.Owner.String(),
			}))
			processed = true
			continue
		}

		processed = true
		if result.Outcome == entity.Charged {
			zap.L().With(zap.Uint64("tokenId", asset.Id), zap.String("owner", asset.Owner.String())).Info("Billing: Charged member")
			sl.outcome = charged
			continue
		}

		zap.L().With(zap.Uint64("tokenId", asset.Id), zap.String("owner", asset.Owner.String())).Info("Billing: Burnt membership")
		sl.outcome = burnt

		var member bool
		err = retry(ctx, s.cfg.RetryDelay, "AddressIsMember", func() (err error) {
			member, err = s.registry.AddressIsMember(asset.Owner)
			return
		})
		if err != nil {
			sl.failures = append(sl.failures, dev.NewError(component, "AddressIsMember", err, map[string]interface{}{
				"owner": asset.Owner.String(),
			}))
			continue
		}
		if !member {
			zap.L().With(zap.String("owner", asset.Owner.String())).Info("Billing: Lost member")
			sl.lost = true
		}
	}
}

// charge retries transient failures until the charge has a definitive
// outcome. Before each retry the asset is re-read, since a call that failed
// in transit may still have been applied.
func (s *Scheduler) charge(ctx context.Context, asset entity.Asset, now time.Time) (entity.ChargeResult, error) {
	for attempt := 1; ; attempt++ {
		res, err := s.registry.ChargeForMembership(asset.Owner, asset.Id, now)
		if err == nil || !entity.IsTransient(err) {
			return res, err
		}

		zap.L().With(zap.Error(err), zap.Uint64("tokenId", asset.Id), zap.Int("attempt", attempt)).Warn("Billing: Charge interrupted, reconciling")
		if werr := wait(ctx, s.cfg.RetryDelay); werr != nil {
			return entity.ChargeResult{}, werr
		}

		var current entity.Asset
		if rerr := retry(ctx, s.cfg.RetryDelay, "Asset", func() (err error) {
			current, err = s.registry.Asset(asset.Id)
			return
		}); rerr != nil {
			return entity.ChargeResult{}, rerr
		}

		switch {
		case current.Burned && current.BurnedAt.Equal(now):
			return entity.ChargeResult{Outcome: entity.BurnedForNonPayment, Amount: entity.Zero()}, nil
		case current.Burned:
			return entity.ChargeResult{}, fmt.Errorf("%w: %d was burned at %s", entity.ErrNotOwner, asset.Id, current.BurnedAt)
		case current.Owner != asset.Owner:
			return entity.ChargeResult{}, entity.ErrNotOwner
		case current.LastPaidAt.Equal(now):
			return entity.ChargeResult{Outcome: entity.Charged}, nil
		}
	}
}

func (s *Scheduler) exempt(account entity.Account) bool {
	for _, e := range s.cfg.Exempt {
		if e == account {
			return true
		}
	}
	return false
}

func newRunId() string {
	u, err := uuid.NewV4()
	if err != nil {
		return time.Now().UTC().Format("20060102T150405.000000000")
	}
	return u.String()
}
