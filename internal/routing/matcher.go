package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"voip-router/internal/models"
	"voip-router/internal/phone"
	"voip-router/internal/store"
	"voip-router/internal/timecond"
)

// ErrNoRoute is returned when no enabled route can carry the call.
var ErrNoRoute = errors.New("no route")

type InboundMatch struct {
	Route *models.InboundRoute
	// Action is the effective destination after any time condition.
	Action         models.Action
	Classification timecond.Classification
	// Failover is set when the route asks the switch to retry elsewhere.
	Failover *models.Action
}

type OutboundMatch struct {
	Route    *models.OutboundRoute
	Trunk    *models.Trunk
	Failover *models.Trunk
	Number   string
}

type Matcher struct {
	Routes          store.RouteRepository
	TimeConditions  store.TimeConditionRepository
	CountryCode     string
	// DefaultTimezone applies to time conditions stored without one.
	DefaultTimezone string
	Now             func() time.Time
}

func (m *Matcher) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Matcher) MatchInbound(ctx context.Context, tenant *models.Tenant, did string) (InboundMatch, error) {
	normalized := phone.Normalize(did, m.CountryCode)
	if normalized == "" {
		return InboundMatch{}, fmt.Errorf("inbound %q: %w", did, ErrNoRoute)
	}

	route, err := m.Routes.InboundRouteByDID(ctx, tenant.ID, did, normalized)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return InboundMatch{}, fmt.Errorf("inbound %s: %w", normalized, ErrNoRoute)
		}
		return InboundMatch{}, err
	}
	if !route.Enabled {
		return InboundMatch{}, fmt.Errorf("inbound route %s disabled: %w", route.ID, ErrNoRoute)
	}

	match := InboundMatch{Route: route, Action: route.Destination}

	if route.TimeConditionID != nil {
		cond, err := m.TimeConditions.TimeConditionByID(ctx, tenant.ID, *route.TimeConditionID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			slog.Warn("inbound route references missing time condition", "route_id", route.ID, "time_condition_id", *route.TimeConditionID)
		case err != nil:
			return InboundMatch{}, err
		case cond.Enabled:
			if cond.Timezone == "" && m.DefaultTimezone != "" {
				withZone := *cond
				withZone.Timezone = m.DefaultTimezone
				cond = &withZone
			}
			res := timecond.Evaluate(cond, m.now())
			match.Classification = res.Classification
			if res.Action.Type != models.ActionContinue {
				match.Action = res.Action
			}
		}
	}

	if route.Failover.Enabled && !route.Failover.Destination.IsZero() {
		fo := route.Failover.Destination
		match.Failover = &fo
	}
	return match, nil
}

func (m *Matcher) MatchOutbound(ctx context.Context, tenant *models.Tenant, dialed string) (OutboundMatch, error) {
	number := phone.Normalize(dialed, m.CountryCode)
	if number == "" {
		return OutboundMatch{}, fmt.Errorf("outbound %q: %w", dialed, ErrNoRoute)
	}

	routes, err := m.Routes.OutboundRoutes(ctx, tenant.ID)
	if err != nil {
		return OutboundMatch{}, err
	}
	SortRoutes(routes)

	for i := range routes {
		route := &routes[i]
		if !route.Enabled {
			continue
		}
		re, err := regexp.Compile(route.DialPattern)
		if err != nil {
			slog.Warn("skipping outbound route with invalid pattern", "route_id", route.ID, "pattern", route.DialPattern, "error", err)
			continue
		}
		if !re.MatchString(number) {
			continue
		}

		primary, err := m.trunk(ctx, tenant, route.TrunkID, route)
		if err != nil {
			return OutboundMatch{}, err
		}
		var failover *models.Trunk
		if route.FailoverTrunkID != nil {
			if failover, err = m.trunk(ctx, tenant, *route.FailoverTrunkID, route); err != nil {
				return OutboundMatch{}, err
			}
		}

		match := OutboundMatch{Route: route, Number: Transform(number, route)}
		switch {
		case primary.Usable():
			match.Trunk = primary
			if failover.Usable() {
				match.Failover = failover
			}
		case failover.Usable():
			slog.Info("primary trunk unavailable, using failover", "route_id", route.ID, "trunk_id", route.TrunkID, "failover", failover.Gateway())
			match.Trunk = failover
		default:
			return OutboundMatch{}, fmt.Errorf("route %s has no usable trunk: %w", route.Name, ErrNoRoute)
		}
		return match, nil
	}

	return OutboundMatch{}, fmt.Errorf("outbound %s: %w", number, ErrNoRoute)
}

// EmergencyTrunk picks the first usable trunk across the tenant's routes.
func (m *Matcher) EmergencyTrunk(ctx context.Context, tenant *models.Tenant) (*models.Trunk, error) {
	routes, err := m.Routes.OutboundRoutes(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	SortRoutes(routes)

	for i := range routes {
		route := &routes[i]
		ids := []uuid.UUID{route.TrunkID}
		if route.FailoverTrunkID != nil {
			ids = append(ids, *route.FailoverTrunkID)
		}
		for _, id := range ids {
			t, err := m.trunk(ctx, tenant, id, route)
			if err != nil {
				return nil, err
			}
			if t.Usable() {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("no usable trunk for emergency call: %w", ErrNoRoute)
}

// trunk loads a trunk; a missing trunk comes back nil so callers treat it as unusable.
func (m *Matcher) trunk(ctx context.Context, tenant *models.Tenant, id uuid.UUID, route *models.OutboundRoute) (*models.Trunk, error) {
	t, err := m.Routes.TrunkByID(ctx, tenant.ID, id)
	if errors.Is(err, models.ErrNotFound) {
		slog.Warn("outbound route references missing trunk", "route_id", route.ID, "trunk_id", id)
		return nil, nil
	}
	return t, err
}

// SortRoutes orders routes by priority, then creation time, then id.
func SortRoutes(routes []models.OutboundRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Transform strips the configured leading digits then prepends prefix and add_digits.
func Transform(number string, route *models.OutboundRoute) string {
	strip := route.StripDigits
	if strip < 0 {
		strip = 0
	}
	if strip > len(number) {
		strip = len(number)
	}
	return route.Prefix + route.AddDigits + number[strip:]
}
