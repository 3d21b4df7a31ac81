// Package locate obtains the user's position. The page owns the browser
// geolocation API, so a fix is requested over the event stream and reported
// back through the API.
package locate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/singleflight"
)

var (
	ErrDenied      = errors.New("location permission denied")
	ErrUnavailable = errors.New("location unavailable")
	ErrUnsupported = errors.New("geolocation not supported")
	ErrTimeout     = errors.New("location request timed out")
	ErrNoRequest   = errors.New("no location request pending")
)

// Browser GeolocationPositionError codes.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// ErrorForCode maps a browser error code to a sentinel. Code 0 means the
// API is missing.
func ErrorForCode(code int) error {
	switch code {
	case CodePermissionDenied:
		return ErrDenied
	case CodePositionUnavailable:
		return ErrUnavailable
	case CodeTimeout:
		return ErrTimeout
	}
	return ErrUnsupported
}

// Fix is a located position.
type Fix struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Accuracy float64   `json:"accuracy,omitempty"`
	At       time.Time `json:"at"`
}

// Point returns the fix as an orb point.
func (f Fix) Point() orb.Point { return orb.Point{f.Lng, f.Lat} }

// Locator produces one fix.
type Locator interface {
	Locate(ctx context.Context) (Fix, error)
}

// Static always returns the same fix. Used for kiosks and tests.
type Static struct {
	Fix Fix
	Err error
}

func (s Static) Locate(context.Context) (Fix, error) {
	if s.Err != nil {
		return Fix{}, s.Err
	}
	return s.Fix, nil
}

type report struct {
	fix Fix
	err error
}

// Client asks the page for a fix and waits for it to be reported.
type Client struct {
	request func()

	mu      sync.Mutex
	waiting chan report
}

// NewClient creates a locator. request is called once per Locate to ask the
// page for a position.
func NewClient(request func()) *Client {
	return &Client{request: request}
}

// Locate blocks until the page reports or ctx ends.
func (c *Client) Locate(ctx context.Context) (Fix, error) {
	ch := make(chan report, 1)
	c.mu.Lock()
	c.waiting = ch
	c.mu.Unlock()

	c.request()

	select {
	case r := <-ch:
		return r.fix, r.err
	case <-ctx.Done():
		c.mu.Lock()
		if c.waiting == ch {
			c.waiting = nil
		}
		c.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Fix{}, ErrTimeout
		}
		return Fix{}, ctx.Err()
	}
}

// Report delivers a fix to the pending request.
func (c *Client) Report(f Fix) error {
	return c.deliver(report{fix: f})
}

// Fail delivers a browser error to the pending request.
func (c *Client) Fail(code int, message string) error {
	err := ErrorForCode(code)
	if message != "" {
		err = fmt.Errorf("%w: %s", err, message)
	}
	return c.deliver(report{err: err})
}

func (c *Client) deliver(r report) error {
	c.mu.Lock()
	ch := c.waiting
	c.waiting = nil
	c.mu.Unlock()
	if ch == nil {
		return ErrNoRequest
	}
	ch <- r
	return nil
}

// Status is the observable state of the service.
type Status struct {
	Locating bool   `json:"isLocating"`
	Fix      *Fix   `json:"lastFix,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service shares one in-flight request among concurrent callers and keeps
// the last fix.
type Service struct {
	loc     Locator
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu       sync.Mutex
	locating bool
	last     *Fix
	lastErr  error
}

// NewService wraps loc. Each request is bounded by timeout.
func NewService(loc Locator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{loc: loc, timeout: timeout, now: time.Now}
}

// Locate requests a fix, joining a request already in flight.
func (s *Service) Locate(ctx context.Context) (Fix, error) {
	s.mu.Lock()
	s.locating = true
	ch := s.group.DoChan("locate", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		f, err := s.loc.Locate(lctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.locating = false
		if err != nil {
			s.lastErr = err
			return nil, err
		}
		if f.At.IsZero() {
			f.At = s.now()
		}
		s.last = &f
		s.lastErr = nil
		return f, nil
	})
	s.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return Fix{}, res.Err
		}
		return res.Val.(Fix), nil
	case <-ctx.Done():
		return Fix{}, ctx.Err()
	}
}

// Last returns the last successful fix.
func (s *Service) Last() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Fix{}, false
	}
	return *s.last, true
}

// Err returns the error of the last request, nil after a success.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Status returns the current state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Locating: s.locating}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	if s.last != nil {
		f := *s.last
		st.Fix = &f
	}
	return st
}
