package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRatioWeightedRollup(t *testing.T) {
	m := New(0)
	m.Add("p", "parent", "", 1, 0)
	m.Add("c1", "child1", "p", 2, 10)
	m.Add("c2", "child2", "p", 1, 20)
	m.Advance("c1", 5)  // 5/10 = 0.5
	m.Advance("c2", 10) // 10/20 = 0.5

	require.InDelta(t, 50.0, m.Percent("p"), 1.0)
}

func TestCompleteMarksSubtreeDone(t *testing.T) {
	m := New(0)
	m.Add("p", "parent", "", 1, 0)
	m.Add("c1", "child1", "p", 1, 10)
	m.Complete("p")
	require.Equal(t, 100.0, m.Percent("p"))
	require.Equal(t, 100.0, m.Percent("c1"))
}

func TestCompleteSchedulesRemoval(t *testing.T) {
	m := New(10 * time.Millisecond)
	m.Add("p", "parent", "", 1, 0)
	m.Complete("p")
	require.Equal(t, 100.0, m.Percent("p"))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0.0, m.Percent("p"))
}

func TestConcurrentAdvanceConverges(t *testing.T) {
	m := New(0)
	m.Add("p", "parent", "", 1, 0)
	const n = 8
	for i := 0; i < n; i++ {
		m.Add(string(rune('a'+i)), "child", "p", 1, 100)
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		id := string(rune('a' + i))
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Advance(id, 1)
			}
		}(id)
	}
	wg.Wait()
	require.InDelta(t, 100.0, m.Percent("p"), 1.0)
}
