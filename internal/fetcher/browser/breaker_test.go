package browser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	b := NewBreaker(3)
	require.Equal(t, StateClosed, b.State())

	require.False(t, b.RecordFailure())
	require.False(t, b.RecordFailure())
	require.True(t, b.Allow())

	require.True(t, b.RecordFailure())
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.Allow())
}

func TestBreaker_SuccessResetsConsecutiveCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(2)
	b.RecordFailure()
	b.RecordSuccess()
	require.Equal(t, 0, b.Failures())

	// One more failure must not open: the streak was broken.
	require.False(t, b.RecordFailure())
	require.True(t, b.Allow())
}

func TestBreaker_StaysOpenForever(t *testing.T) {
	t.Parallel()

	b := NewBreaker(1)
	require.True(t, b.RecordFailure())

	// No transition back, even after successes are recorded.
	b.RecordSuccess()
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.Allow())
}

func TestBreaker_DefaultThreshold(t *testing.T) {
	t.Parallel()

	b := NewBreaker(0)
	for i := 0; i < DefaultBreakerThreshold-1; i++ {
		require.False(t, b.RecordFailure())
	}
	require.True(t, b.RecordFailure())
}

func TestBreaker_ConcurrentFailuresOpenOnce(t *testing.T) {
	t.Parallel()

	b := NewBreaker(5)
	var wg sync.WaitGroup
	opened := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opened <- b.RecordFailure()
		}()
	}
	wg.Wait()
	close(opened)

	count := 0
	for o := range opened {
		if o {
			count++
		}
	}
	require.Equal(t, 1, count)
	require.Equal(t, StateOpen, b.State())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "closed", StateClosed.String())
	require.Equal(t, "open", StateOpen.String())
}
