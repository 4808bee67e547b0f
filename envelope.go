package main

import (
	"math"
	"math/cmplx"

	"github.com/go-audio/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Envelope holds one loudness value per audio frame, normalized so the
// Euclidean norm of the whole envelope is 1.
type Envelope []float64

// BuildEnvelope computes the magnitude of the analytic signal of buf.
// Multi-channel frames are averaged to mono first.
func BuildEnvelope(buf *audio.IntBuffer) Envelope {
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil
	}
	mono := monoFloats(buf)
	n := len(mono)

	size := fftSize(n)
	seq := make([]complex128, size)
	for i, v := range mono {
		seq[i] = complex(v, 0)
	}
	fft := fourier.NewCmplxFFT(size)
	coeff := fft.Coefficients(nil, seq)
	applyHilbertMask(coeff)
	analytic := fft.Sequence(seq, coeff)

	// Sequence is unscaled; normalizing by the norm removes the factor.
	env := make(Envelope, n)
	var sumSq float64
	for i := range env {
		m := cmplx.Abs(analytic[i])
		env[i] = m
		sumSq += m * m
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return env
	}
	for i := range env {
		env[i] /= norm
	}
	return env
}

// maxExactPrimeFactor is the largest prime factor a length may have and
// still be transformed at its exact size.
const maxExactPrimeFactor = 127

// fftSize returns the transform length used for n samples: n itself, unless
// n has a prime factor above maxExactPrimeFactor, in which case the next
// power of two. Each prime factor p costs p operations per sample.
func fftSize(n int) int {
	if n < 1 || largestPrimeFactor(n) <= maxExactPrimeFactor {
		return n
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

func largestPrimeFactor(n int) int {
	largest := 1
	for p := 2; p*p <= n; p++ {
		for n%p == 0 {
			largest, n = p, n/p
		}
	}
	return max(largest, n)
}

// applyHilbertMask zeroes negative frequencies and doubles positive ones.
func applyHilbertMask(coeff []complex128) {
	n := len(coeff)
	if n < 2 {
		return
	}
	half := n / 2
	for i := 1; i < n; i++ {
		switch {
		case n%2 == 0 && i == half:
		case i <= (n-1)/2:
			coeff[i] *= 2
		default:
			coeff[i] = 0
		}
	}
}

func monoFloats(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	_, _, mid := sampleRange(buf.SourceBitDepth)
	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for f := range frames {
		var sum float64
		for c := range channels {
			sum += float64(buf.Data[f*channels+c] - mid)
		}
		out[f] = sum / float64(channels)
	}
	return out
}

// Query returns the envelope values covering the frames between from and to,
// the same frames Extractor.Extract covers. A descending range (from > to)
// is returned in reverse order.
func (e Envelope) Query(from, to int) []float64 {
	lo := clampIndex(min(from, to), len(e))
	hi := clampIndex(max(from, to), len(e))
	if from <= to {
		return e[lo:hi]
	}
	out := make([]float64, 0, hi-lo)
	for i := hi - 1; i >= lo; i-- {
		out = append(out, e[i])
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
