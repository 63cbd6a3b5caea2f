package engine_test

import (
	"testing"

	"ambulance-ews/internal/engine"

	"github.com/stretchr/testify/require"
)

func TestTemporalAlertBuffer_NotConfirmedUntilFull(t *testing.T) {
	b := engine.NewTemporalAlertBuffer(3)

	require.False(t, b.Push(true))
	require.False(t, b.Push(true))
	require.False(t, b.Full())

	// 第三次填满且全为 true，确认
	require.True(t, b.Push(true))
	require.True(t, b.Full())
}

func TestTemporalAlertBuffer_SingleFalseBlocksConfirmation(t *testing.T) {
	b := engine.NewTemporalAlertBuffer(3)

	// T T F T T T：只有第6次（F 被挤出后）才确认
	require.False(t, b.Push(true))
	require.False(t, b.Push(true))
	require.False(t, b.Push(false))
	require.False(t, b.Push(true))
	require.False(t, b.Push(true))
	require.True(t, b.Push(true))
}

func TestTemporalAlertBuffer_OverwritesOldest(t *testing.T) {
	b := engine.NewTemporalAlertBuffer(3)

	b.Push(false)
	b.Push(true)
	b.Push(true)
	require.Equal(t, 3, b.Len())

	// 最旧的 false 被覆盖后全 true
	require.True(t, b.Push(true))
	require.Equal(t, 3, b.Len())
}

func TestTemporalAlertBuffer_CapacityOne(t *testing.T) {
	b := engine.NewTemporalAlertBuffer(1)

	require.True(t, b.Push(true))
	require.False(t, b.Push(false))
	require.True(t, b.Push(true))
}

func TestTemporalAlertBuffer_Reset(t *testing.T) {
	b := engine.NewTemporalAlertBuffer(3)

	b.Push(true)
	b.Push(true)
	b.Push(true)
	require.True(t, b.Full())

	b.Reset()
	require.Equal(t, 0, b.Len())
	require.False(t, b.Full())

	// 重置后需要重新积累
	require.False(t, b.Push(true))
	require.False(t, b.Push(true))
	require.True(t, b.Push(true))
}
