package audio

import (
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"
)

const (
	// CaptureSampleRate is the rate of every frame sent to the live API.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of the assistant's audio.
	PlaybackSampleRate = 24000

	DefaultSampleRate = CaptureSampleRate
	DefaultFormat     = "linear16"
	Channels          = 1

	pcmMediaType = "audio/pcm"
)

var ErrUnsupportedMIMEType = errors.New("unsupported audio MIME type")

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

func GetPlaybackEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: PlaybackSampleRate, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// MIMEType renders the encoding the way the live API labels PCM blobs,
// e.g. "audio/pcm;rate=16000".
func (e EncodingInfo) MIMEType() string {
	return fmt.Sprintf("%s;rate=%d", pcmMediaType, e.SampleRate)
}

// Duration returns how long byteLen bytes of mono audio play for.
func (e EncodingInfo) Duration(byteLen int) time.Duration {
	size := e.Format.ByteSize()
	if size <= 0 || e.SampleRate <= 0 {
		return 0
	}
	samples := byteLen / size
	return time.Duration(samples) * time.Second / time.Duration(e.SampleRate)
}

// Samples returns how many samples fit into d.
func (e EncodingInfo) Samples(d time.Duration) int {
	return int(int64(d) * int64(e.SampleRate) / int64(time.Second))
}

// ParseMIMEType reads an "audio/pcm;rate=N" label. A missing rate is
// treated as the playback rate, which is what the live API omits it for.
func ParseMIMEType(mimeType string) (EncodingInfo, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return EncodingInfo{}, fmt.Errorf("%w %q: %w", ErrUnsupportedMIMEType, mimeType, err)
	}
	if !strings.EqualFold(mediaType, pcmMediaType) {
		return EncodingInfo{}, fmt.Errorf("%w %q", ErrUnsupportedMIMEType, mimeType)
	}

	info := GetPlaybackEncodingInfo()
	if rate, ok := params["rate"]; ok {
		sampleRate, err := strconv.Atoi(rate)
		if err != nil || sampleRate <= 0 {
			return EncodingInfo{}, fmt.Errorf("%w %q: invalid rate", ErrUnsupportedMIMEType, mimeType)
		}
		info.SampleRate = sampleRate
	}
	return info, nil
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingLinear16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)
