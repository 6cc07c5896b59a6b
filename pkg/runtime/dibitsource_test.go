package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunkwave/trunkwave/pkg/logger"
	"github.com/trunkwave/trunkwave/pkg/source"
)

func TestLiveDibitSourceNextDibitPullsFromSourceInChunks(t *testing.T) {
	r := New(logger.New(logger.Config{Level: "error"}))
	r.Source = &fakeSource{samples: []int16{1000, -1000, 1000, -1000}}

	s := newLiveDibitSource(r)
	for i := 0; i < 4; i++ {
		_, ok := s.NextDibit()
		require.True(t, ok)
	}
}

func TestLiveDibitSourceNextDibitFalseOnStalledSource(t *testing.T) {
	r := New(logger.New(logger.Config{Level: "error"}))
	r.Source = &fakeSource{
		samples: []int16{0},
		onRead:  func(int) error { return source.ErrStalled },
	}

	s := newLiveDibitSource(r)
	_, ok := s.NextDibit()
	require.False(t, ok)
}

func TestLiveDibitSourcePriorDibitsReflectsRecentlyPushed(t *testing.T) {
	r := New(logger.New(logger.Config{Level: "error"}))
	r.Source = &fakeSource{samples: []int16{1000, -1000, 1000, -1000, 1000}}

	s := newLiveDibitSource(r)
	var pushed []byte
	for i := 0; i < 5; i++ {
		d, ok := s.NextDibit()
		require.True(t, ok)
		pushed = append(pushed, d)
	}

	prior := s.PriorDibits(3)
	require.Equal(t, pushed[2:], prior)
}
