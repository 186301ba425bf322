package audio

import (
	"errors"
	"testing"
	"time"
)

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{name: "silence", in: 0, want: 0},
		{name: "full positive", in: 1, want: 32767},
		{name: "full negative", in: -1, want: -32768},
		{name: "half positive", in: 0.5, want: 16383},
		{name: "half negative", in: -0.5, want: -16384},
		{name: "clamps above range", in: 1.5, want: 32767},
		{name: "clamps below range", in: -3, want: -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloatToInt16(tt.in); got != tt.want {
				t.Fatalf("FloatToInt16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestLinear16RoundTripIsLittleEndian(t *testing.T) {
	pcm := EncodeLinear16([]int16{1, -2})
	want := []byte{0x01, 0x00, 0xFE, 0xFF}
	if string(pcm) != string(want) {
		t.Fatalf("unexpected byte layout %v, want %v", pcm, want)
	}

	samples := DecodeLinear16(append(pcm, 0x7F))
	if len(samples) != 2 || samples[0] != 1 || samples[1] != -2 {
		t.Fatalf("unexpected samples %v", samples)
	}
}

func TestResamplerDecimatesByRatio(t *testing.T) {
	in := make([]int16, 4800)
	for i := range in {
		in[i] = int16(i)
	}

	out := NewResampler(48000, 16000).Process(in)
	if len(out) != 1600 {
		t.Fatalf("expected 1600 samples, got %d", len(out))
	}
	for i, s := range out {
		if int(s) != i*3 {
			t.Fatalf("sample %d = %d, want %d", i, s, i*3)
		}
	}
}

func TestResamplerCarriesPositionAcrossChunks(t *testing.T) {
	in := make([]int16, 4410)
	for i := range in {
		in[i] = int16(i)
	}

	whole := NewResampler(44100, 16000).Process(in)

	chunked := NewResampler(44100, 16000)
	var pieces []int16
	for _, size := range []int{7, 128, 1000, 3, 3272} {
		pieces = append(pieces, chunked.Process(in[:size])...)
		in = in[size:]
	}

	if len(pieces) != len(whole) {
		t.Fatalf("chunked output has %d samples, contiguous output has %d", len(pieces), len(whole))
	}
	for i := range whole {
		if pieces[i] != whole[i] {
			t.Fatalf("sample %d differs: chunked %d, contiguous %d", i, pieces[i], whole[i])
		}
	}
}

func TestResamplerPassthroughCopies(t *testing.T) {
	in := []int16{1, 2, 3}
	out := NewResampler(16000, 16000).Process(in)
	out[0] = 42
	if in[0] != 1 {
		t.Fatalf("expected passthrough output to be a copy")
	}
}

func TestFrameEncoderEmitsFixedFramesAndKeepsRemainder(t *testing.T) {
	source := EncodingInfo{SampleRate: 48000, Format: EncodingFloat32}
	encoder := NewFrameEncoder(source, 100*time.Millisecond)

	// 150 ms of 48 kHz float audio is 7200 samples, 2400 after resampling.
	chunk := EncodeFloat32(make([]float32, 7200))
	frames := encoder.Encode(chunk)
	if len(frames) != 1 {
		t.Fatalf("expected one complete frame, got %d", len(frames))
	}
	if len(frames[0]) != 3200 {
		t.Fatalf("expected 100 ms frame of 3200 bytes, got %d", len(frames[0]))
	}

	frames = encoder.Encode(chunk)
	if len(frames) != 2 {
		t.Fatalf("expected remainder to complete two more frames, got %d", len(frames))
	}

	frames[0][0] = 0x7F
	if frames[1][0] == 0x7F {
		t.Fatalf("expected frames not to share backing storage")
	}
}

func TestParseMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		wantRate int
		wantErr  bool
	}{
		{name: "with rate", mimeType: "audio/pcm;rate=24000", wantRate: 24000},
		{name: "spaced parameters", mimeType: "audio/pcm; rate=16000", wantRate: 16000},
		{name: "missing rate", mimeType: "audio/pcm", wantRate: PlaybackSampleRate},
		{name: "other media type", mimeType: "audio/opus", wantErr: true},
		{name: "bad rate", mimeType: "audio/pcm;rate=fast", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseMIMEType(tt.mimeType)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedMIMEType) {
					t.Fatalf("expected ErrUnsupportedMIMEType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.SampleRate != tt.wantRate {
				t.Fatalf("expected rate %d, got %d", tt.wantRate, info.SampleRate)
			}
		})
	}
}

func TestEncodingInfoDuration(t *testing.T) {
	info := GetPlaybackEncodingInfo()
	if got := info.Duration(4800); got != 100*time.Millisecond {
		t.Fatalf("expected 100ms, got %v", got)
	}
	if got := GetDefaultEncodingInfo().MIMEType(); got != "audio/pcm;rate=16000" {
		t.Fatalf("unexpected capture MIME type %q", got)
	}
}
