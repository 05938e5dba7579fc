// Package services holds the business operations behind the HTTP API:
// per-user CRUD on clients, articles, sales, charges and settings, and the
// dashboard analytics.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/gate"
	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/policy"
)

// Deps are shared by every service.
type Deps struct {
	DB        *gorm.DB
	Gate      *gate.Gate[uint]
	Cache     analytics.Cache
	Publisher events.Publisher
	Logger    *log.Logger

	// Rates used when the user has not stored their own.
	DefaultTVARate    float64
	DefaultURSSAFRate float64
	CacheTTL          time.Duration

	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// withDefaults fills the optional dependencies.
func (d Deps) withDefaults() Deps {
	if d.Gate == nil {
		d.Gate = policy.NewGate()
	}
	if d.Cache == nil {
		d.Cache = analytics.NewMemoryCache(1000)
	}
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 10 * time.Minute
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Services bundles every service built from the same Deps.
type Services struct {
	Users     *UserService
	Clients   *ClientService
	Articles  *ArticleService
	Sales     *SaleService
	Charges   *ChargeService
	Settings  *SettingsService
	Dashboard *DashboardService
}

func New(d Deps) *Services {
	d = d.withDefaults()
	settings := &SettingsService{base: newBase(d, policy.ResourceSetting)}
	return &Services{
		Users:     &UserService{base: newBase(d, "user"), settings: settings},
		Clients:   &ClientService{base: newBase(d, policy.ResourceClient)},
		Articles:  &ArticleService{base: newBase(d, policy.ResourceArticle)},
		Sales:     &SaleService{base: newBase(d, policy.ResourceSale), settings: settings},
		Charges:   &ChargeService{base: newBase(d, policy.ResourceCharge)},
		Settings:  settings,
		Dashboard: newDashboardService(d, settings),
	}
}

// base carries what every CRUD service needs.
type base struct {
	Deps
	resource string
	lg       *log.Logger
}

func newBase(d Deps, resource string) base {
	return base{Deps: d, resource: resource, lg: d.Logger.WithComponent(log.ComponentService).With("resource", resource)}
}

// authorize maps a denial to ErrNotFound so other users' ids are not disclosed.
func (b *base) authorize(ctx context.Context, userID uint, action gate.Action, record any) error {
	if err := b.Gate.Authorize(ctx, userID, action, b.resource, record); err != nil {
		if errors.Is(err, gate.ErrUnauthorized) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// changed invalidates the user's cached analytics and notifies consumers.
// Failures are logged: the write itself already succeeded.
func (b *base) changed(ctx context.Context, userID, id uint, action string) {
	if err := b.Cache.Bump(ctx, userID); err != nil {
		b.lg.WarnContext(ctx, "cache invalidation failed", "user_id", userID, "error", err)
	}
	msg := events.NewRecordChanged(userID, b.resource, id, action)
	if err := b.Publisher.Publish(ctx, msg); err != nil {
		b.lg.WarnContext(ctx, "publish failed", "user_id", userID, "id", id, "error", err)
	}
}

// first loads one record of the service's resource, scoped by the gate.
func (b *base) first(ctx context.Context, userID uint, action gate.Action, dst any, id uint, preload ...string) error {
	q := b.DB.WithContext(ctx)
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.First(dst, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return b.authorize(ctx, userID, action, dst)
}

// ListParams select a page of records; Query filters by text.
type ListParams struct {
	Limit  int
	Offset int
	Query  string
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func (p ListParams) normalized() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Query = strings.TrimSpace(p.Query)
	return p
}

// Page is a slice of results with the unpaginated total.
type Page[T any] struct {
	Items  []T
	Total  int64
	Limit  int
	Offset int
}

// paginate counts q then loads the requested page into a slice of T.
// q must carry its Model.
func paginate[T any](q *gorm.DB, p ListParams, order string) (Page[T], error) {
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page[T]{}, err
	}
	items := make([]T, 0)
	if err := q.Order(order).Limit(p.Limit).Offset(p.Offset).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}, nil
}

// likeAny adds a case-insensitive LIKE on any of columns.
func likeAny(q *gorm.DB, text string, columns ...string) *gorm.DB {
	if text == "" {
		return q
	}
	pattern := "%" + strings.ToLower(text) + "%"
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		conds[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = pattern
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}
