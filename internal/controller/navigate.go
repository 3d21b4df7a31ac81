package controller

import (
	"context"
	"errors"

	"github.com/paulmach/orb"

	"github.com/joeblew999/daurin/internal/entity"
	"github.com/joeblew999/daurin/internal/locate"
	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/routing"
	"github.com/joeblew999/daurin/internal/search"
)

// Search resolves query in the given mode ("location" or "entity") and
// moves the map to the match.
func (c *Controller) Search(ctx context.Context, query, mode string) (OperationStatus, error) {
	m, err := search.ParseMode(mode)
	if err != nil {
		return failure(OutcomeInvalid, c.notify(mapview.LevelWarning, "%s", err.Error())), nil
	}
	if _, err := search.Normalize(query); err != nil {
		return failure(OutcomeInvalid, c.notify(mapview.LevelWarning, msgEmptyQuery)), nil
	}
	if err := c.ready(); err != nil {
		return OperationStatus{}, err
	}

	if m == search.ModeLocation {
		return c.searchLocation(ctx, query), nil
	}
	return c.searchEntity(query), nil
}

func (c *Controller) searchLocation(ctx context.Context, query string) OperationStatus {
	reg, err := c.regions.Location(ctx, query)
	switch {
	case errors.Is(err, search.ErrNotFound):
		return failure(OutcomeNotFound, c.notify(mapview.LevelWarning, msgLocationNotFound, query))
	case err != nil:
		c.log.Warn("location search failed", "query", query, "error", err)
		return failure(OutcomeFailed, c.notify(mapview.LevelError, msgSearchFailed))
	}

	c.mu.Lock()
	c.m.FitBounds(reg.Bound)
	c.mu.Unlock()
	return succeeded(OutcomeFound, reg.Name)
}

func (c *Controller) searchEntity(query string) OperationStatus {
	groups := make([][]entity.Entry, 0, len(entity.Kinds))
	for _, k := range entity.Kinds {
		groups = append(groups, c.loaders[k].Visible())
	}
	e, err := search.Entity(query, groups...)
	if err != nil {
		return failure(OutcomeNotFound, c.notify(mapview.LevelWarning, msgEntityNotFound, query))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.SetView(e.Position, entityZoom)
	if err := c.m.OpenPopup(e.MarkerID); err != nil {
		// hidden between the scan and now
		return failure(OutcomeNotFound, c.notify(mapview.LevelWarning, msgEntityNotFound, query))
	}
	return succeeded(OutcomeFound, e.Name)
}

// GetUserLocation asks for the user's position and recenters on it.
// Concurrent calls share one request.
func (c *Controller) GetUserLocation(ctx context.Context) (OperationStatus, error) {
	if err := c.ready(); err != nil {
		return OperationStatus{}, err
	}

	fix, err := c.locator.Locate(ctx)
	defer c.publishState()
	if err != nil {
		c.log.Info("geolocation failed", "error", err)
		return failure(OutcomeFailed, c.notify(mapview.LevelError, "%s", locateMessage(err))), nil
	}

	c.mu.Lock()
	c.m.SetView(fix.Point(), locateZoom)
	c.mu.Unlock()
	return succeeded(OutcomeLocated, c.notify(mapview.LevelSuccess, msgLocated)), nil
}

func locateMessage(err error) string {
	switch {
	case errors.Is(err, locate.ErrDenied):
		return msgLocateDenied
	case errors.Is(err, locate.ErrUnsupported):
		return msgLocateUnsupp
	case errors.Is(err, locate.ErrTimeout):
		return msgLocateTimeout
	}
	return msgLocateFailed
}

// ReportLocation delivers the page's geolocation result. A non-zero code is
// a browser GeolocationPositionError code; -1 means the API is missing.
func (c *Controller) ReportLocation(fix locate.Fix, code int, message string) error {
	if c.client == nil {
		return locate.ErrNoRequest
	}
	if code != 0 {
		if code < 0 {
			code = 0
		}
		return c.client.Fail(code, message)
	}
	return c.client.Report(fix)
}

// ShowRoute draws a route from the last location fix (or the map center)
// to the destination. A failed computation leaves the current route alone.
func (c *Controller) ShowRoute(ctx context.Context, lat, lng float64, name string) (OperationStatus, error) {
	if err := c.ready(); err != nil {
		return OperationStatus{}, err
	}

	origin := c.m.Center()
	if fix, has := c.locator.Last(); has {
		origin = fix.Point()
	}
	dest := orb.Point{lng, lat}

	st, err := c.routes.Show(ctx, c.lockedCanvas(), origin, dest, name)
	switch {
	case errors.Is(err, routing.ErrDisabled):
		return failure(OutcomeDisabled, c.notify(mapview.LevelWarning, msgRouteDisabled)), nil
	case errors.Is(err, routing.ErrStale):
		return succeeded(OutcomeStale, name), nil
	case err != nil:
		c.log.Warn("routing failed", "destination", name, "error", err)
		return failure(OutcomeFailed, c.notify(mapview.LevelError, msgRouteFailed, name)), nil
	}

	c.mu.Lock()
	c.m.FitBounds(st.Active.Bound())
	c.mu.Unlock()
	c.publishState()
	return succeeded(OutcomeRouted, c.notify(mapview.LevelSuccess, msgRouteShown, name)), nil
}

// ClearRoutes removes the active route. It is safe to call repeatedly.
func (c *Controller) ClearRoutes() OperationStatus {
	c.routes.Clear(c.lockedCanvas())
	c.publishState()
	return succeeded(OutcomeCleared, "")
}

// lockedCanvas serializes route drawing and entity markers with the other
// map mutations.
func (c *Controller) lockedCanvas() lockedCanvas { return lockedCanvas{c} }

type lockedCanvas struct{ c *Controller }

func (l lockedCanvas) AddMarker(mk mapview.Marker) {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.m.AddMarker(mk)
}

func (l lockedCanvas) ClearGroup(name string) int {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return l.c.m.ClearGroup(name)
}

func (l lockedCanvas) DrawRoute(p orb.LineString) {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.m.DrawRoute(p)
}

func (l lockedCanvas) ClearRoutes() {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.m.ClearRoutes()
}
