package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisleview/shelfwatch/internal/detect"
)

func det(x1, y1, x2, y2 int) detect.Detection {
	return detect.NewDetection(detect.Box{X1: x1, Y1: y1, X2: x2, Y2: y2}, 0.9, "bottle")
}

func TestNewRegistry_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero max age", Config{MaxAge: 0, MinHits: 3, IoUThreshold: 0.3}},
		{"zero min hits", Config{MaxAge: 30, MinHits: 0, IoUThreshold: 0.3}},
		{"threshold above one", Config{MaxAge: 30, MinHits: 3, IoUThreshold: 1.5}},
		{"negative threshold", Config{MaxAge: 30, MinHits: 3, IoUThreshold: -0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_BootstrapGraceEmitsEarly(t *testing.T) {
	// During the first minHits cycles, a matched track is reported even
	// before it accumulates minHits matches. The creation cycle itself does
	// not emit; the first re-match does.
	r, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	d := det(10, 10, 50, 50)

	out := r.Update([]detect.Detection{d})
	assert.Empty(t, out, "creation cycle must not emit")

	out = r.Update([]detect.Detection{d})
	require.Len(t, out, 1, "grace period should emit on first re-match")
	assert.Equal(t, uint64(1), out[0].TrackID)
	assert.Equal(t, 2, out[0].Hits)
}

func TestRegistry_ConfirmationAfterGrace(t *testing.T) {
	// A track born after the grace window stays hidden until it reaches
	// minHits matches.
	cfg := DefaultConfig()
	r, err := NewRegistry(cfg)
	require.NoError(t, err)

	// Burn through the grace window with empty cycles.
	for i := 0; i <= cfg.MinHits; i++ {
		r.Update(nil)
	}

	d := det(100, 100, 160, 160)

	out := r.Update([]detect.Detection{d}) // spawn, Hits=1
	assert.Empty(t, out)
	out = r.Update([]detect.Detection{d}) // Hits=2
	assert.Empty(t, out, "unconfirmed track must stay hidden")
	out = r.Update([]detect.Detection{d}) // Hits=3 == MinHits
	require.Len(t, out, 1, "track should surface at min hits")
	assert.Equal(t, cfg.MinHits, out[0].Hits)
}

func TestRegistry_IdentityPersistsAcrossCycles(t *testing.T) {
	r, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	// Box drifts a few pixels per cycle, always above the IoU floor.
	for i := 0; i < 6; i++ {
		d := det(10+i*3, 10, 50+i*3, 50)
		out := r.Update([]detect.Detection{d})
		if i == 0 {
			continue
		}
		require.Len(t, out, 1, "cycle %d", i)
		assert.Equal(t, uint64(1), out[0].TrackID, "identity must be stable")
	}
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_CoastingTrackNotEmitted(t *testing.T) {
	r, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	d := det(10, 10, 50, 50)
	for i := 0; i < 4; i++ {
		r.Update([]detect.Detection{d})
	}

	// Detection disappears: the confirmed track survives but is withheld.
	out := r.Update(nil)
	assert.Empty(t, out)
	assert.Equal(t, 1, r.Len(), "track should coast, not evict")

	// Reappears: same identity comes back.
	out = r.Update([]detect.Detection{d})
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].TrackID)
}

func TestRegistry_EvictionAfterMaxAge(t *testing.T) {
	cfg := Config{MaxAge: 3, MinHits: 1, IoUThreshold: 0.3}
	r, err := NewRegistry(cfg)
	require.NoError(t, err)

	r.Update([]detect.Detection{det(10, 10, 50, 50)})
	assert.Equal(t, 1, r.Len())

	// MaxAge empty cycles evict the tracker.
	for i := 0; i < cfg.MaxAge; i++ {
		r.Update(nil)
	}
	assert.Equal(t, 0, r.Len())

	// A new object at the same position gets a fresh identifier.
	r.Update([]detect.Detection{det(10, 10, 50, 50)})
	out := r.Update([]detect.Detection{det(10, 10, 50, 50)})
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].TrackID, "identifiers are never reused")
}

func TestRegistry_DistinctObjectsGetDistinctIDs(t *testing.T) {
	r, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	a := det(0, 0, 40, 40)
	b := det(200, 200, 240, 240)

	r.Update([]detect.Detection{a, b})
	out := r.Update([]detect.Detection{a, b})
	require.Len(t, out, 2)

	ids := map[uint64]bool{}
	for _, o := range out {
		ids[o.TrackID] = true
	}
	assert.Len(t, ids, 2, "each object needs its own track")
}

func TestRegistry_EmittedObjectCarriesDetectionFields(t *testing.T) {
	r, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	d := det(10, 10, 50, 50)
	r.Update([]detect.Detection{d})
	out := r.Update([]detect.Detection{d})
	require.Len(t, out, 1)

	assert.Equal(t, d.Box, out[0].Box)
	assert.Equal(t, "bottle", out[0].ClassName)
	assert.Equal(t, "beverage", out[0].ProductCategory)
	assert.Equal(t, d.Center, out[0].Center)
	assert.InDelta(t, 0.9, out[0].Confidence, 1e-9)
}

func TestRegistry_Reset(t *testing.T) {
	r, err := NewRegistry(DefaultConfig())
	require.NoError(t, err)

	d := det(10, 10, 50, 50)
	r.Update([]detect.Detection{d})
	r.Update([]detect.Detection{d})
	require.Equal(t, 1, r.Len())

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Cycles())

	// Counter restarts: the next spawn is track 1 again.
	r.Update([]detect.Detection{d})
	out := r.Update([]detect.Detection{d})
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].TrackID)
}
