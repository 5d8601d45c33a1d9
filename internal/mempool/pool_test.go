package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "small size gets minimum", input: 1, expected: 1024},
		{name: "exactly 1024", input: 1024, expected: 1024},
		{name: "just over 1024", input: 1025, expected: 2048},
		{name: "large size", input: 10000, expected: 10240},
		{name: "zero size", input: 0, expected: 1024},
		{name: "negative size", input: -1, expected: 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBool_Zeroed(t *testing.T) {
	buf := GetBool(2000)
	require.Len(t, buf, 2000)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	again := GetBool(1500)
	require.Len(t, again, 1500)
	for i, v := range again {
		require.Falsef(t, v, "index %d not reset", i)
	}
	PutBool(again)
}

func TestGetInt_Zeroed(t *testing.T) {
	buf := GetInt(10)
	assert.Len(t, buf, 10)
	assert.GreaterOrEqual(t, cap(buf), 1024)
	buf[3] = 42
	PutInt(buf)

	again := GetInt(10)
	assert.Equal(t, make([]int, 10), again)
	PutInt(again)
}

func TestPut_NilAndForeign(t *testing.T) {
	assert.NotPanics(t, func() {
		PutInt(nil)
		PutBool(nil)
		PutInt(make([]int, 7))
	})
}

func TestPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 100 {
				b := GetBool(n)
				b[0] = true
				PutBool(b)
				i := GetInt(n)
				i[n-1] = n
				PutInt(i)
			}
		}(1000 + g*700)
	}
	wg.Wait()
}
