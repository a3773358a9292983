package system

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBytes(t *testing.T) {
	// background + frame at 3 bands, annotation at 2
	assert.Equal(t, uint64(10*20*8*8), FrameBytes(10, 20, 3, 2))
}

func TestMemoryReport(t *testing.T) {
	r := MemoryReport{Required: 1 << 20, Available: 2 << 20}
	assert.True(t, r.Fits())
	assert.Equal(t, "1.0 MiB needed, 2.0 MiB available", r.String())
	assert.False(t, MemoryReport{Required: 2, Available: 1}.Fits())
}

func TestCheckMemory(t *testing.T) {
	r, err := CheckMemory(64, 64, 3, 2, 4)
	if err != nil {
		t.Skipf("memory stats unavailable: %v", err)
	}
	assert.Equal(t, 4*FrameBytes(64, 64, 3, 2), r.Required)
	assert.Positive(t, r.Available)
}

func TestArrayPoolShapes(t *testing.T) {
	p := NewArrayPool()
	a := p.Get(4, 3, 2)
	require.Len(t, a.Data, 24)
	assert.Equal(t, 4, a.W)
	p.Put(a)

	b := p.Get(2, 2, 1)
	assert.Len(t, b.Data, 4)

	// Unknown shapes are dropped silently
	p.Put(nil)
	p.Put(b)
}

func TestArrayPoolConcurrent(t *testing.T) {
	p := NewArrayPool()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				a := p.Get(8, 8, 1+c%3)
				a.Fill(1)
				p.Put(a)
			}
		}(i)
	}
	wg.Wait()
}
