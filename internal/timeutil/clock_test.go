package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClockNowAndSince(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(3 * time.Second)
	assert.Equal(t, start.Add(3*time.Second), clock.Now())
	assert.Equal(t, 3*time.Second, clock.Since(start))
}

func TestMockTickerFiresOnAdvance(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Not due yet.
	clock.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	// Crosses the deadline.
	clock.Advance(50 * time.Millisecond)
	select {
	case tick := <-ticker.C():
		assert.Equal(t, time.Unix(0, 0).Add(100*time.Millisecond), tick)
	default:
		t.Fatal("ticker did not fire at its interval")
	}
}

func TestMockTickerStops(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(10 * time.Millisecond)
	ticker.Stop()

	clock.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockTickerDropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	// Two intervals with nobody draining: the second tick drops.
	clock.Advance(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("expected the undrained tick to be dropped")
	default:
	}
}

func TestRealClockTicker(t *testing.T) {
	t.Parallel()

	clock := RealClock{}
	before := clock.Now()
	ticker := clock.NewTicker(time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire")
	}
	require.False(t, clock.Now().Before(before))
	assert.GreaterOrEqual(t, clock.Since(before), time.Duration(0))
}
