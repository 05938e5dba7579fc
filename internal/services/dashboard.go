package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/models"
	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

const (
	topClientsLimit = 5
	maxUpcomingDays = 366

	// Evolution and upcoming horizon precomputed by Warm.
	warmEvolutionSteps = 12
	warmUpcomingDays   = 30
)

// Upcoming lists the projected occurrences of recurring records.
type Upcoming struct {
	Window      analytics.Window       `json:"window"`
	Occurrences []analytics.Occurrence `json:"occurrences"`
}

// DashboardService loads a user's records, projects and aggregates them,
// and caches the results until the user's next write.
type DashboardService struct {
	Deps
	settings *SettingsService
	lg       *log.Logger
	group    singleflight.Group
}

func newDashboardService(d Deps, settings *SettingsService) *DashboardService {
	return &DashboardService{Deps: d, settings: settings, lg: d.Logger.WithComponent(log.ComponentDashboard)}
}

// Summary returns the totals of w, the comparison with the window before
// it and the top clients.
func (s *DashboardService) Summary(ctx context.Context, userID uint, w analytics.Window) (analytics.Summary, error) {
	return cached(ctx, s, userID, "summary", []string{w.String()}, func(ctx context.Context) (analytics.Summary, error) {
		prev := w.Previous()
		sales, charges, err := s.load(ctx, userID, prev.Start, w.End)
		if err != nil {
			return analytics.Summary{}, err
		}
		rates, err := s.settings.Rates(ctx, userID)
		if err != nil {
			return analytics.Summary{}, err
		}
		summary := analytics.Summarize(w, saleRecords(sales), chargeRecords(charges), rates, topClientsLimit)
		if err := s.nameClients(ctx, userID, summary.TopClients); err != nil {
			return analytics.Summary{}, err
		}
		return summary, nil
	})
}

// Evolution returns steps windows of granularity g ending with the one
// containing anchor.
func (s *DashboardService) Evolution(ctx context.Context, userID uint, g analytics.Granularity, anchor time.Time, steps int) (analytics.Evolution, error) {
	windows, err := analytics.Steps(g, anchor, steps)
	switch {
	case errors.Is(err, analytics.ErrInvalidSteps):
		return analytics.Evolution{}, invalidField("steps", "invalid_steps")
	case errors.Is(err, analytics.ErrInvalidGranularity):
		return analytics.Evolution{}, invalidField("granularity", "invalid_granularity")
	case err != nil:
		return analytics.Evolution{}, err
	}
	from, to := windows[0].Start, windows[len(windows)-1].End

	parts := []string{string(g), recurrence.Day(anchor).Format(time.DateOnly), strconv.Itoa(steps)}
	return cached(ctx, s, userID, "evolution", parts, func(ctx context.Context) (analytics.Evolution, error) {
		sales, charges, err := s.load(ctx, userID, from, to)
		if err != nil {
			return analytics.Evolution{}, err
		}
		rates, err := s.settings.Rates(ctx, userID)
		if err != nil {
			return analytics.Evolution{}, err
		}
		return analytics.Evolve(g, anchor, steps, saleRecords(sales), chargeRecords(charges), rates)
	})
}

// Upcoming projects recurring sales and charges over the days starting at
// from (inclusive).
func (s *DashboardService) Upcoming(ctx context.Context, userID uint, from time.Time, days int) (Upcoming, error) {
	if days < 1 || days > maxUpcomingDays {
		return Upcoming{}, invalidField("days", "out_of_range")
	}
	start := recurrence.Day(from)
	w, err := analytics.NewWindow(start, start.AddDate(0, 0, days-1))
	if err != nil {
		return Upcoming{}, err
	}

	return cached(ctx, s, userID, "upcoming", []string{w.String()}, func(ctx context.Context) (Upcoming, error) {
		sales, charges, err := s.load(ctx, userID, w.Start, w.End)
		if err != nil {
			return Upcoming{}, err
		}
		occ := analytics.Occurrences(w, saleRecords(recurringSales(sales)), chargeRecords(recurringCharges(charges)))
		if occ == nil {
			occ = []analytics.Occurrence{}
		}
		return Upcoming{Window: w, Occurrences: occ}, nil
	})
}

// Warm precomputes what the dashboard page asks for first.
func (s *DashboardService) Warm(ctx context.Context, userID uint, now time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Summary(ctx, userID, analytics.MonthWindow(now))
		return err
	})
	g.Go(func() error {
		_, err := s.Evolution(ctx, userID, analytics.Month, now, warmEvolutionSteps)
		return err
	})
	g.Go(func() error {
		_, err := s.Upcoming(ctx, userID, now, warmUpcomingDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	s.lg.DebugContext(ctx, "dashboard warmed", "user_id", userID)
	return nil
}

// Invalidate drops every cached result of userID.
func (s *DashboardService) Invalidate(ctx context.Context, userID uint) error {
	return s.Cache.Bump(ctx, userID)
}

// load returns the sales (with lines) and charges that can have an
// occurrence between from and to: dated in the range, or recurring and
// started before its end.
func (s *DashboardService) load(ctx context.Context, userID uint, from, to time.Time) ([]models.Sale, []models.Charge, error) {
	// Stored dates may carry a time of day; compare against the next midnight.
	end := recurrence.Day(to).AddDate(0, 0, 1)
	start := recurrence.Day(from)

	var sales []models.Sale
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND date < ? AND (date >= ? OR COALESCE(recurrence, '') <> '')", userID, end, start).
		Order("date, id").
		Find(&sales).Error
	if err != nil {
		return nil, nil, err
	}

	var charges []models.Charge
	err = s.DB.WithContext(ctx).
		Where("user_id = ? AND date < ? AND (date >= ? OR COALESCE(recurrence, '') <> '')", userID, end, start).
		Order("date, id").
		Find(&charges).Error
	if err != nil {
		return nil, nil, err
	}
	return sales, charges, nil
}

// nameClients fills the display names of ranked clients, deleted ones included.
func (s *DashboardService) nameClients(ctx context.Context, userID uint, ranked []analytics.ClientTotal) error {
	if len(ranked) == 0 {
		return nil
	}
	ids := make([]uint, len(ranked))
	for i, ct := range ranked {
		ids[i] = ct.ClientID
	}
	var clients []models.Client
	if err := s.DB.WithContext(ctx).Unscoped().Where("user_id = ? AND id IN ?", userID, ids).Find(&clients).Error; err != nil {
		return err
	}
	names := make(map[uint]string, len(clients))
	for i := range clients {
		names[clients[i].ID] = clients[i].DisplayName()
	}
	for i := range ranked {
		ranked[i].Name = names[ranked[i].ClientID]
	}
	return nil
}

func recurringSales(in []models.Sale) []models.Sale {
	out := in[:0:0]
	for _, s := range in {
		if s.Recurrence.IsRecurring() {
			out = append(out, s)
		}
	}
	return out
}

func recurringCharges(in []models.Charge) []models.Charge {
	out := in[:0:0]
	for _, c := range in {
		if c.Recurrence.IsRecurring() {
			out = append(out, c)
		}
	}
	return out
}

// cached serves kind from the cache, computing it at most once at a time
// per key. Cache failures degrade to computing.
func cached[T any](ctx context.Context, s *DashboardService, userID uint, kind string, parts []string, compute func(context.Context) (T, error)) (T, error) {
	var out T
	gen, err := s.Cache.Generation(ctx, userID)
	if err != nil {
		s.lg.WarnContext(ctx, "cache generation unavailable", "user_id", userID, "error", err)
		return compute(ctx)
	}
	key := analytics.Key(userID, gen, kind, parts...)

	hit, err := s.Cache.Get(ctx, key, &out)
	if err != nil {
		s.lg.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	} else if hit {
		return out, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		cctx := context.WithoutCancel(ctx)
		res, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		if err := s.Cache.Set(cctx, key, res, s.CacheTTL); err != nil {
			s.lg.WarnContext(cctx, "cache write failed", "key", key, "error", err)
		}
		return res, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}
