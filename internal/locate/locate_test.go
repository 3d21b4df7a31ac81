package locate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientReport(t *testing.T) {
	var c *Client
	c = NewClient(func() {
		go func() { _ = c.Report(Fix{Lat: -7.2575, Lng: 112.7521}) }()
	})
	s := NewService(c, time.Second)

	f, err := s.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -7.2575, f.Lat)
	assert.False(t, f.At.IsZero())

	st := s.Status()
	assert.False(t, st.Locating)
	require.NotNil(t, st.Fix)
	assert.Empty(t, st.Error)
}

func TestClientDenied(t *testing.T) {
	var c *Client
	c = NewClient(func() {
		go func() { _ = c.Fail(CodePermissionDenied, "User denied Geolocation") }()
	})
	s := NewService(c, time.Second)

	_, err := s.Locate(context.Background())
	assert.ErrorIs(t, err, ErrDenied)

	st := s.Status()
	assert.False(t, st.Locating)
	assert.Nil(t, st.Fix)
	assert.Contains(t, st.Error, "denied")
}

func TestTimeoutLeavesServiceIdle(t *testing.T) {
	s := NewService(NewClient(func() {}), 20*time.Millisecond)

	_, err := s.Locate(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, s.Status().Locating)
}

func TestReportWithoutRequest(t *testing.T) {
	c := NewClient(func() {})
	assert.ErrorIs(t, c.Report(Fix{}), ErrNoRequest)
}

func TestConcurrentCallsShareOneRequest(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})
	var c *Client
	c = NewClient(func() {
		requests.Add(1)
		go func() {
			<-release
			_ = c.Report(Fix{Lat: 1, Lng: 2})
		}()
	})
	s := NewService(c, time.Second)

	var wg, started sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			f, err := s.Locate(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 1.0, f.Lat)
		}()
	}
	started.Wait()
	require.Eventually(t, func() bool { return s.Status().Locating }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), requests.Load())
}

func TestStatic(t *testing.T) {
	s := NewService(Static{Fix: Fix{Lat: 3, Lng: 4}}, 0)
	f, err := s.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.0, f.Point().Lon())

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, f, last)
}
