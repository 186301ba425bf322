package audio

import (
	"encoding/binary"
	"math"
)

// FloatToInt16 converts a normalized sample, clamping it to [-1, 1] first.
// Negative values scale by 0x8000 and positive by 0x7FFF so both ends of
// the range are reachable.
func FloatToInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

func Int16ToFloat(s int16) float32 {
	if s < 0 {
		return float32(s) / 0x8000
	}
	return float32(s) / 0x7FFF
}

// DecodeLinear16 reads little-endian 16-bit samples. A trailing odd byte is
// ignored.
func DecodeLinear16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return samples
}

func EncodeLinear16(samples []int16) []byte {
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}
	return pcm
}

// DecodeFloat32 reads little-endian IEEE-754 samples.
func DecodeFloat32(raw []byte) []float32 {
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return samples
}

func EncodeFloat32(samples []float32) []byte {
	raw := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(s))
	}
	return raw
}

// ToLinear16Samples converts raw device audio of the given format into
// 16-bit samples.
func ToLinear16Samples(raw []byte, format encodingFormat) []int16 {
	switch format {
	case EncodingFloat32:
		floats := DecodeFloat32(raw)
		samples := make([]int16, len(floats))
		for i, f := range floats {
			samples[i] = FloatToInt16(f)
		}
		return samples
	default:
		return DecodeLinear16(raw)
	}
}
