package source

import (
	"fmt"
	"time"

	hamlib "github.com/xylo04/goHamlib"
)

// RigctlTuner sends retune commands to an SDR/radio over Hamlib-style
// rigctl. It wraps an underlying Source and forwards every other call
// unchanged — Tune is the only method it overrides.
type RigctlTuner struct {
	Source
	rig       *hamlib.Rig
	coalescer *TuneCoalescer
}

// NewRigctlTuner opens a Hamlib rig at the given model/port and wraps src
// so Tune requests go out over rigctl instead of (or in addition to) the
// sample source's own tuning path.
func NewRigctlTuner(src Source, model int, port string) (*RigctlTuner, error) {
	rig := hamlib.NewRig(model)
	if err := rig.SetConf("rig_pathname", port); err != nil {
		return nil, fmt.Errorf("source: rigctl configure %s: %w", port, err)
	}
	if err := rig.Open(); err != nil {
		return nil, fmt.Errorf("source: rigctl open %s: %w", port, err)
	}
	return &RigctlTuner{Source: src, rig: rig, coalescer: NewTuneCoalescer()}, nil
}

// Tune retunes the rig, coalescing repeated calls within the 50ms window,
// then delegates the frequency to the wrapped Source so its own
// AGC/filters track the new channel.
func (r *RigctlTuner) Tune(hz uint32) error {
	if !r.coalescer.ShouldApply(hz, time.Now()) {
		return nil
	}
	if err := r.rig.SetFreq(hamlib.VFOCurrent, float64(hz)); err != nil {
		return fmt.Errorf("source: rigctl set freq %d: %w", hz, err)
	}
	return r.Source.Tune(hz)
}

// Close tears down the rig connection before closing the wrapped source.
func (r *RigctlTuner) Close() error {
	r.rig.Close()
	return r.Source.Close()
}
