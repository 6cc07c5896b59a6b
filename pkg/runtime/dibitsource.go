package runtime

// liveDibitSource pulls raw samples from the Runtime's Source on demand,
// resampling each refill through multiRateFront when the sync hunter's
// multi-rate hunt is trying an alternate samples-per-symbol hypothesis,
// and feeds the result through the extractor for decoders that need
// dibits beyond the one the hunter matched on. The extractor's active
// modulation is whatever the last handleMatch window selected, so every
// Slice call here rides on the same live classifier state Run uses.
type liveDibitSource struct {
	r      *Runtime
	raw    []int16
	buf    []int16
	pos, n int
}

func newLiveDibitSource(r *Runtime) *liveDibitSource {
	return &liveDibitSource{r: r, raw: make([]int16, 960)}
}

// nextSample returns the next raw (or resampled) sample, refilling from
// the source as needed. It surfaces source.ErrStalled distinctly so the
// caller can treat it as recoverable rather than fatal.
func (s *liveDibitSource) nextSample() (int16, error) {
	for s.pos >= s.n {
		n, err := s.r.Source.Read(s.raw)
		if err != nil {
			return 0, err
		}
		if s.r.multiRateFront != nil {
			s.buf = s.r.multiRateFront.resample(s.raw[:n])
		} else {
			s.buf = s.raw[:n]
		}
		s.n = len(s.buf)
		s.pos = 0
	}
	v := s.buf[s.pos]
	s.pos++
	return v, nil
}

// NextDibit implements router.DibitSource.
func (s *liveDibitSource) NextDibit() (byte, bool) {
	sample, err := s.nextSample()
	if err != nil {
		return 0, false
	}
	d := s.r.Extractor.Slice(float64(sample))
	return d.Value, true
}

// PriorDibits implements router.DibitSource.
func (s *liveDibitSource) PriorDibits(n int) []byte {
	return s.r.Extractor.Ring().Last(n)
}
