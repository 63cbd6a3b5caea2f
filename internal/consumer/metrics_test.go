package consumer_test

import (
	"sync"
	"testing"
	"time"

	"ambulance-ews/internal/consumer"

	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := &consumer.Metrics{StartTime: time.Now()}

	m.IncrementProcessed()
	m.IncrementProcessed()
	m.IncrementSucceeded(10 * time.Millisecond)
	m.IncrementFailed("parse")
	m.IncrementFailed("pipeline")
	m.IncrementFailed("persist")
	m.IncrementFailed("cache")

	s := m.GetSnapshot()
	require.Equal(t, int64(2), s.MessagesProcessed)
	require.Equal(t, int64(1), s.MessagesSucceeded)
	require.Equal(t, int64(4), s.MessagesFailed)
	require.Equal(t, int64(1), s.ErrorsParse)
	require.Equal(t, int64(1), s.ErrorsPipeline)
	require.Equal(t, int64(1), s.ErrorsPersist)
	require.Equal(t, int64(1), s.ErrorsCache)
	require.Equal(t, 10*time.Millisecond, s.TotalProcessingTime)
}

func TestMetrics_ConcurrentIncrements(t *testing.T) {
	m := &consumer.Metrics{StartTime: time.Now()}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncrementProcessed()
				m.IncrementSucceeded(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	s := m.GetSnapshot()
	require.Equal(t, int64(1000), s.MessagesProcessed)
	require.Equal(t, int64(1000), s.MessagesSucceeded)
}
