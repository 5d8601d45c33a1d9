package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("test_timer")
	assert.Equal(t, "test_timer: 0s", timer.String())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)

	str := timer.String()
	assert.Contains(t, str, "test_timer")
	assert.Contains(t, str, "ms")
}

func TestStages_Order(t *testing.T) {
	var s Stages
	ran := false
	s.Time("threshold", func() { ran = true })
	s.Add("label", 3*time.Millisecond)
	s.Add("render", 2*time.Millisecond)

	require.True(t, ran)
	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "threshold", list[0].Stage)
	assert.Equal(t, "label", list[1].Stage)
	assert.Equal(t, "render", list[2].Stage)
	assert.GreaterOrEqual(t, s.Total(), 5*time.Millisecond)
	assert.Contains(t, s.String(), "label=3ms")
}

func TestStages_ListIsCopy(t *testing.T) {
	var s Stages
	s.Add("a", time.Second)
	list := s.List()
	list[0].Stage = "changed"
	assert.Equal(t, "a", s.List()[0].Stage)
}

func TestGetMemoryStats(t *testing.T) {
	m := GetMemoryStats()
	assert.Positive(t, m.Sys)
	assert.Positive(t, m.Goroutines)
	assert.Contains(t, m.String(), "KB")
}
