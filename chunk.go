package main

import (
	"math"

	"github.com/go-audio/audio"
)

// DEFAULT_TAPER_FRACTION is the share of a scrub chunk faded in and out.
const DEFAULT_TAPER_FRACTION = 0.1

// Tukey returns an n point tapered cosine window. fraction is the share of
// the window inside the cosine lobes: 0 is rectangular, 1 is a Hann window.
func Tukey(n int, fraction float64) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	if n < 2 || fraction <= 0 {
		return w
	}
	fraction = math.Min(fraction, 1)
	edge := fraction / 2
	for i := range w {
		x := float64(i) / float64(n-1)
		switch {
		case x < edge:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*(x/edge-1)))
		case x > 1-edge:
			w[i] = 0.5 * (1 + math.Cos(math.Pi*((x-1)/edge+1)))
		}
	}
	return w
}

// sampleRange returns the representable range of a PCM sample of the given
// bit depth and its silence value. 8-bit PCM is unsigned.
func sampleRange(bitDepth int) (lo, hi, mid int) {
	switch {
	case bitDepth <= 0:
		return math.MinInt32, math.MaxInt32, 0
	case bitDepth <= 8:
		return 0, 255, 128
	case bitDepth >= 32:
		return math.MinInt32, math.MaxInt32, 0
	}
	hi = 1<<(bitDepth-1) - 1
	return -hi - 1, hi, 0
}

// TaperInPlace multiplies the frames of buf by a Tukey window.
//
// The weighted value is computed in float64 around the silence value,
// rounded half away from zero, and saturated to the range of the buffer's
// bit depth before being stored back.
func TaperInPlace(buf *audio.IntBuffer, fraction float64) {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	if frames == 0 || fraction <= 0 {
		return
	}
	lo, hi, mid := sampleRange(buf.SourceBitDepth)
	for f, weight := range Tukey(frames, fraction) {
		if weight == 1 {
			continue
		}
		for c := range channels {
			i := f*channels + c
			v := math.Round(float64(buf.Data[i]-mid)*weight) + float64(mid)
			buf.Data[i] = saturate(v, lo, hi)
		}
	}
}

func saturate(v float64, lo, hi int) int {
	if v <= float64(lo) {
		return lo
	}
	if v >= float64(hi) {
		return hi
	}
	return int(v)
}

// Extractor slices scrub chunks out of a loaded audio buffer.
type Extractor struct {
	// TaperFraction is handed to Tukey for both chunk edges.
	TaperFraction float64
}

// Extract copies the frames between from and to into a new dense buffer and
// tapers its edges. Both directions cover the frames [min(from, to),
// max(from, to)); walking backward returns them in reverse order. It returns
// nil when the range is empty or dir does not lead from from to to.
func (x Extractor) Extract(buf *audio.IntBuffer, from, to int, dir Direction) *audio.IntBuffer {
	if buf == nil || buf.Format == nil {
		return nil
	}
	if (dir == Forward && to <= from) || (dir == Backward && from <= to) || dir == 0 {
		return nil
	}
	channels := max(buf.Format.NumChannels, 1)
	frames := len(buf.Data) / channels
	lo := min(max(min(from, to), 0), frames)
	hi := min(max(max(from, to), 0), frames)
	length := hi - lo
	if length <= 0 {
		return nil
	}

	out := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  buf.Format.SampleRate,
		},
		Data:           make([]int, length*channels),
		SourceBitDepth: buf.SourceBitDepth,
	}
	src := buf.Data[lo*channels : hi*channels]
	if dir == Forward {
		copy(out.Data, src)
	} else {
		for f := range length {
			back := (length - 1 - f) * channels
			copy(out.Data[f*channels:(f+1)*channels], src[back:back+channels])
		}
	}
	TaperInPlace(out, x.TaperFraction)
	return out
}
