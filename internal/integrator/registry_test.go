package integrator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vram0gh/taylorize/internal/ir"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	sig := ir.DefaultSignature(nil)

	spec, err := reg.Specialize(sig, "dx[1] = x[1]", 1)
	require.NoError(t, err)

	got, ok := reg.Lookup(spec.Key)
	require.True(t, ok)
	assert.Same(t, spec, got)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistrySpecializeRejectsBadSource(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Specialize(ir.DefaultSignature(nil), "dx[1] = q", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specialize:")
	assert.Empty(t, reg.Keys(), "failed specialization must not be registered")
}

func TestRegistryKeysSorted(t *testing.T) {
	reg := NewRegistry()
	sig := ir.DefaultSignature(nil)
	sources := []string{"dx[1] = x[1]", "dx[1] = -x[1]", "dx[1] = x[1] * x[1]"}
	for _, src := range sources {
		_, err := reg.Specialize(sig, src, 1)
		require.NoError(t, err)
	}

	keys := reg.Keys()
	require.Len(t, keys, 3)
	assert.IsIncreasing(t, keys)
}

func TestRegistryReplaceSameKey(t *testing.T) {
	reg := NewRegistry()
	sig := ir.DefaultSignature(nil)

	first, err := reg.Specialize(sig, "dx[1] = x[1]", 1)
	require.NoError(t, err)
	second, err := reg.Specialize(sig, "dx[1] = x[1]", 1)
	require.NoError(t, err)
	assert.Equal(t, first.Key, second.Key)

	got, ok := reg.Lookup(first.Key)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Len(t, reg.Keys(), 1)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	sig := ir.DefaultSignature([]string{"a"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf("dx[1] = a * x[1]\ndx[2] = %d * x[2]", i)
			_, err := reg.Specialize(sig, src, 2)
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			for _, k := range reg.Keys() {
				reg.Lookup(k)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, reg.Keys(), 8)
}
