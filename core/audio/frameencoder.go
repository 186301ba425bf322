package audio

import "time"

// FrameEncoder turns raw device audio of any supported format and rate into
// fixed-length 16 kHz linear16 frames. Samples that do not fill a frame yet
// are held until the next chunk arrives.
type FrameEncoder struct {
	source       EncodingInfo
	resampler    *Resampler
	frameSamples int
	pending      []int16
}

func NewFrameEncoder(source EncodingInfo, frameDuration time.Duration) *FrameEncoder {
	target := GetDefaultEncodingInfo()
	frameSamples := target.Samples(frameDuration)
	if frameSamples <= 0 {
		frameSamples = target.Samples(100 * time.Millisecond)
	}
	return &FrameEncoder{
		source:       source,
		resampler:    NewResampler(source.SampleRate, target.SampleRate),
		frameSamples: frameSamples,
	}
}

// Encode returns every frame completed by chunk. Each frame is a freshly
// allocated buffer the caller may keep.
func (e *FrameEncoder) Encode(chunk []byte) [][]byte {
	samples := e.resampler.Process(ToLinear16Samples(chunk, e.source.Format))
	e.pending = append(e.pending, samples...)

	var frames [][]byte
	for len(e.pending) >= e.frameSamples {
		frames = append(frames, EncodeLinear16(e.pending[:e.frameSamples]))
		e.pending = e.pending[e.frameSamples:]
	}
	if len(e.pending) == 0 {
		e.pending = nil
	}
	return frames
}

// Reset discards buffered samples, used when capture restarts.
func (e *FrameEncoder) Reset() {
	e.pending = nil
	e.resampler.Reset()
}
