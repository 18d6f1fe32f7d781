package units

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRecognized(t *testing.T) {
	u := Resolve("Jy")
	require.Equal(t, "Jy", u.String())
	require.Equal(t, "jansky", u.Physical())
	require.False(t, u.Symbolic())
}

func TestResolveSymbolicFallback(t *testing.T) {
	// Unrecognized strings are not errors: they become ad-hoc units
	u := Resolve("adu/frame")
	require.Equal(t, "adu/frame", u.String())
	require.True(t, u.Symbolic())
}

func TestResolveCaches(t *testing.T) {
	require.Same(t, Resolve("pc"), Resolve("pc"))
	require.Same(t, Resolve("weird-unit"), Resolve("weird-unit"))
	require.NotSame(t, Resolve("pc"), Resolve("kpc"))
}

func TestResolveConcurrent(t *testing.T) {
	// Resolution is pure and the cache is shared across goroutines
	var wg sync.WaitGroup
	results := make([]*Unit, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Resolve("erg/s")
		}(i)
	}
	wg.Wait()
	for _, u := range results {
		require.Same(t, results[0], u)
	}
}

func TestExactStringLookup(t *testing.T) {
	// Prefixes and compounds are not interpreted, only listed exactly
	require.False(t, Resolve("mJy").Symbolic())
	require.True(t, Resolve("nJy").Symbolic())
	require.False(t, Resolve("km/s").Symbolic())
	require.True(t, Resolve("km/h").Symbolic())
}
