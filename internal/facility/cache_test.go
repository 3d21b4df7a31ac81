package facility

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/model"
)

func TestConcurrentGetFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewCache(func(ctx context.Context) (*model.Facilities, error) {
		calls.Add(1)
		<-release
		return &model.Facilities{TPA: []model.FacilityRecord{{ID: "t1"}}}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Records(context.Background(), model.CategoryTPA)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return c.State() == StatePending }, timeout, tick)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StatePopulated, c.State())

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFailureReturnsToEmpty(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(func(ctx context.Context) (*model.Facilities, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("network down")
		}
		return &model.Facilities{}, nil
	})

	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateEmpty, c.State())

	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePopulated, c.State())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRecordsUnknownCategory(t *testing.T) {
	c := NewCache(func(ctx context.Context) (*model.Facilities, error) {
		return &model.Facilities{}, nil
	})
	_, err := c.Records(context.Background(), "mall")
	assert.Error(t, err)
}

func TestFailedFetchNeverLeavesPending(t *testing.T) {
	for range 50 {
		c := NewCache(func(ctx context.Context) (*model.Facilities, error) {
			return nil, errors.New("network down")
		})

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 20 {
					_, err := c.Get(context.Background())
					assert.Error(t, err)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, StateEmpty, c.State())
	}
}
