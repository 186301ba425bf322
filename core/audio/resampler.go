package audio

// Resampler converts a mono stream between two rates by picking the nearest
// preceding sample. The read position is kept in units of 1/to of an input
// sample and carried across calls, so a stream split into arbitrary chunks
// resamples exactly the same as one contiguous chunk.
type Resampler struct {
	from, to int64
	position int64
}

func NewResampler(from, to int) *Resampler {
	return &Resampler{from: int64(from), to: int64(to)}
}

// Passthrough reports whether the rates match and samples are returned as is.
func (r *Resampler) Passthrough() bool {
	return r.from == r.to || r.from <= 0 || r.to <= 0
}

func (r *Resampler) Process(in []int16) []int16 {
	if r.Passthrough() {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}

	limit := int64(len(in)) * r.to
	out := make([]int16, 0, limit/r.from+1)
	for r.position < limit {
		out = append(out, in[r.position/r.to])
		r.position += r.from
	}
	r.position -= limit
	return out
}

func (r *Resampler) Reset() {
	r.position = 0
}
