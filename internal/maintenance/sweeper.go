// Package maintenance runs background cleanup over the record store.
package maintenance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/store"
)

// LocationChecker reports whether a location still exists for an owner.
type LocationChecker interface {
	Exists(owner string, key location.Key) (bool, error)
}

// Sweeper removes food preference overrides whose location no longer
// exists. Location deletion leaves overrides behind on purpose; this sweep
// is the cleanup path, so a delete-then-recreate within one interval keeps
// its overrides.
type Sweeper struct {
	store     *store.Store
	locations LocationChecker
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper. If interval is <= 0, it defaults to 10m.
func NewSweeper(s *store.Store, locations LocationChecker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		store:     s,
		locations: locations,
		interval:  interval,
		logger:    slog.Default(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}

		removed, err := s.RunOnce()
		if err != nil {
			s.logger.Error("orphan sweep failed", "error", err)
			continue
		}
		if removed > 0 {
			s.logger.Info("removed orphaned overrides", "count", removed)
		}
	}
}

// RunOnce sweeps every owner once and returns how many orphaned override
// records were deleted. Owners are swept concurrently with bounded
// parallelism.
func (s *Sweeper) RunOnce() (int, error) {
	owners, err := s.store.Owners()
	if err != nil {
		return 0, err
	}

	counts := make([]int, len(owners))
	g := new(errgroup.Group)
	g.SetLimit(4)

	for i, owner := range owners {
		i, owner := i, owner
		g.Go(func() error {
			n, err := s.sweepOwner(owner)
			counts[i] = n
			return err
		})
	}

	removed := 0
	err = g.Wait()
	for _, n := range counts {
		removed += n
	}
	return removed, err
}

func (s *Sweeper) sweepOwner(owner string) (int, error) {
	records, err := s.store.QueryByOwnerAndKeyPrefix(owner, foodpref.OverrideKeyPrefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range records {
		key := location.Key(strings.TrimPrefix(rec.Key, foodpref.OverrideKeyPrefix))
		exists, err := s.locations.Exists(owner, key)
		if err != nil {
			return removed, err
		}
		if exists {
			continue
		}

		if _, err := s.store.Delete(owner, rec.Key); err != nil {
			return removed, err
		}
		s.logger.Debug("deleted orphaned override", "owner", owner, "location", key)
		removed++
	}
	return removed, nil
}
