package formats

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// NoneCodec is the codec value used by the backend for an absent stream.
const NoneCodec = "none"

// Number is an optional positive number. Zero means absent. It decodes from
// JSON numbers, numeric strings and null; anything else decodes as absent.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	var raw string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(b)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return nil
	}
	*n = Number(v)

	return nil
}

// Value returns n as float64.
func (n Number) Value() float64 {
	return float64(n)
}

// Present reports whether n carries a value.
func (n Number) Present() bool {
	return n > 0
}

// Format is one downloadable variant of a video as reported by the backend.
type Format struct {
	FormatID       string `json:"format_id"`
	Ext            string `json:"ext"`
	VideoCodec     string `json:"vcodec"`
	AudioCodec     string `json:"acodec"`
	Height         Number `json:"height"`
	Width          Number `json:"width"`
	FrameRate      Number `json:"fps"`
	TotalBitrate   Number `json:"tbr"`
	VideoBitrate   Number `json:"vbr"`
	AudioBitrate   Number `json:"abr"`
	Filesize       Number `json:"filesize"`
	FilesizeApprox Number `json:"filesize_approx"`
	FormatNote     string `json:"format_note"`
	Note           string `json:"note"`
	Resolution     string `json:"resolution"`
}

// HasVideo reports whether f carries a video stream.
func (f Format) HasVideo() bool {
	return codecPresent(f.VideoCodec)
}

// HasAudio reports whether f carries an audio stream.
func (f Format) HasAudio() bool {
	return codecPresent(f.AudioCodec)
}

// Notes returns the human-readable note, preferring format_note.
func (f Format) Notes() string {
	if f.FormatNote != "" {
		return f.FormatNote
	}
	return f.Note
}

func codecPresent(codec string) bool {
	c := strings.TrimSpace(codec)
	return c != "" && !strings.EqualFold(c, NoneCodec)
}

// SizeUnit tells how the backend reports file sizes.
type SizeUnit string

const (
	SizeBytes     SizeUnit = "bytes"
	SizeMegabytes SizeUnit = "mb"
)

const bytesPerMegabyte = 1 << 20

// SizeBytes returns the exact or approximate file size of f in bytes, or
// zero if unknown.
func (f Format) SizeBytes(unit SizeUnit) uint64 {
	size := f.Filesize
	if !size.Present() {
		size = f.FilesizeApprox
	}
	if !size.Present() {
		return 0
	}
	if unit == SizeMegabytes {
		return uint64(size.Value() * bytesPerMegabyte)
	}
	return uint64(size.Value())
}
