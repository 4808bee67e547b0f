package main

import (
	"math"
	"testing"

	"github.com/go-audio/audio"
)

func TestTukey(t *testing.T) {
	w := Tukey(101, 0.1)
	if w[0] != 0 || w[100] != 0 {
		t.Fatalf("endpoints = %v, %v, want 0", w[0], w[100])
	}
	if w[50] != 1 {
		t.Fatalf("midpoint = %v, want 1", w[50])
	}
	for i := range w {
		if math.Abs(w[i]-w[100-i]) > 1e-12 {
			t.Fatalf("w[%d] = %v, w[%d] = %v, want symmetric", i, w[i], 100-i, w[100-i])
		}
		if w[i] < 0 || w[i] > 1 {
			t.Fatalf("w[%d] = %v outside [0, 1]", i, w[i])
		}
	}
	// Only the outer 5% on each side is tapered.
	for i := 6; i <= 94; i++ {
		if w[i] != 1 {
			t.Fatalf("w[%d] = %v, want 1", i, w[i])
		}
	}
}

func TestTukeyDegenerate(t *testing.T) {
	for _, tt := range []struct {
		n        int
		fraction float64
	}{
		{10, 0},
		{1, 0.1},
		{0, 0.1},
	} {
		w := Tukey(tt.n, tt.fraction)
		if len(w) != tt.n {
			t.Fatalf("Tukey(%d, %v) has %d points", tt.n, tt.fraction, len(w))
		}
		for i, v := range w {
			if v != 1 {
				t.Fatalf("Tukey(%d, %v)[%d] = %v, want 1", tt.n, tt.fraction, i, v)
			}
		}
	}
	hann := Tukey(5, 1)
	want := []float64{0, 0.5, 1, 0.5, 0}
	for i := range want {
		if math.Abs(hann[i]-want[i]) > 1e-12 {
			t.Fatalf("Tukey(5, 1) = %v, want %v", hann, want)
		}
	}
}

func TestExtractRoundTrip(t *testing.T) {
	buf := rampBuffer(1000, DEFAULT_SAMPLE_RATE)
	x := Extractor{TaperFraction: 0}

	fwd := x.Extract(buf, 100, 350, Forward)
	back := x.Extract(buf, 350, 100, Backward)
	if fwd.NumFrames() != 250 || back.NumFrames() != 250 {
		t.Fatalf("got %d and %d frames, want 250", fwd.NumFrames(), back.NumFrames())
	}
	for i := range 250 {
		if fwd.Data[i] != 100+i {
			t.Fatalf("forward[%d] = %d, want %d", i, fwd.Data[i], 100+i)
		}
		if back.Data[i] != fwd.Data[249-i] {
			t.Fatalf("backward[%d] = %d, want %d", i, back.Data[i], fwd.Data[249-i])
		}
	}
}

func TestExtractRanges(t *testing.T) {
	buf := rampBuffer(10, DEFAULT_SAMPLE_RATE)
	tests := []struct {
		name     string
		from, to int
		dir      Direction
		want     []int
	}{
		{"backward to the start", 5, 0, Backward, []int{4, 3, 2, 1, 0}},
		{"forward from the start", 0, 5, Forward, []int{0, 1, 2, 3, 4}},
		{"forward to the last frame", 6, 9, Forward, []int{6, 7, 8}},
		{"backward from the last frame", 9, 7, Backward, []int{8, 7}},
	}
	for _, tt := range tests {
		c := Extractor{}.Extract(buf, tt.from, tt.to, tt.dir)
		if c == nil || len(c.Data) != len(tt.want) {
			t.Errorf("%s: Extract(%d, %d) = %v, want %v", tt.name, tt.from, tt.to, c, tt.want)
			continue
		}
		for i := range tt.want {
			if c.Data[i] != tt.want[i] {
				t.Errorf("%s: Extract(%d, %d) = %v, want %v", tt.name, tt.from, tt.to, c.Data, tt.want)
				break
			}
		}
	}
}

func TestExtractIsCopy(t *testing.T) {
	buf := rampBuffer(100, DEFAULT_SAMPLE_RATE)
	c := Extractor{TaperFraction: DEFAULT_TAPER_FRACTION}.Extract(buf, 10, 60, Forward)
	c.Data[0] = -1
	if buf.Data[10] != 10 {
		t.Fatalf("source changed to %d", buf.Data[10])
	}
	if c.Format == buf.Format {
		t.Fatal("chunk shares the source format")
	}
	if c.SourceBitDepth != 16 || c.Format.SampleRate != DEFAULT_SAMPLE_RATE {
		t.Fatalf("chunk format = %d-bit %d Hz", c.SourceBitDepth, c.Format.SampleRate)
	}
}

func TestExtractTapersEdges(t *testing.T) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           make([]int, 200),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = 10000
	}
	c := Extractor{TaperFraction: 0.1}.Extract(buf, 0, 101, Forward)
	if c.Data[0] != 0 || c.Data[100] != 0 {
		t.Fatalf("edges = %d, %d, want 0", c.Data[0], c.Data[100])
	}
	if c.Data[50] != 10000 {
		t.Fatalf("middle = %d, want 10000", c.Data[50])
	}
	if c.Data[2] <= 0 || c.Data[2] >= 10000 {
		t.Fatalf("ramp sample = %d, want inside (0, 10000)", c.Data[2])
	}
}

func TestExtractStereoBackwardKeepsChannels(t *testing.T) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           []int{1, -1, 2, -2, 3, -3, 4, -4},
		SourceBitDepth: 16,
	}
	c := Extractor{}.Extract(buf, 4, 1, Backward)
	want := []int{4, -4, 3, -3, 2, -2}
	if len(c.Data) != len(want) {
		t.Fatalf("got %v, want %v", c.Data, want)
	}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Fatalf("got %v, want %v", c.Data, want)
		}
	}
}

func TestExtractEmpty(t *testing.T) {
	buf := rampBuffer(100, DEFAULT_SAMPLE_RATE)
	x := Extractor{}
	tests := []struct {
		name     string
		from, to int
		dir      Direction
	}{
		{"equal", 5, 5, Forward},
		{"forward but descending", 10, 5, Forward},
		{"backward but ascending", 5, 10, Backward},
		{"no direction", 5, 10, 0},
		{"past the end", 200, 300, Forward},
	}
	for _, tt := range tests {
		if c := x.Extract(buf, tt.from, tt.to, tt.dir); c != nil {
			t.Errorf("%s: got %d frames, want nil", tt.name, c.NumFrames())
		}
	}
	if c := x.Extract(nil, 0, 10, Forward); c != nil {
		t.Error("nil buffer: got a chunk")
	}
}

func TestSaturate(t *testing.T) {
	tests := []struct {
		name   string
		v      float64
		lo, hi int
		want   int
	}{
		{"16-bit high", 40000, -32768, 32767, 32767},
		{"16-bit low", -40000, -32768, 32767, -32768},
		{"16-bit inside", -1234, -32768, 32767, -1234},
		{"8-bit high", 300, 0, 255, 255},
		{"8-bit low", -50, 0, 255, 0},
	}
	for _, tt := range tests {
		if got := saturate(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("%s: saturate(%v) = %d, want %d", tt.name, tt.v, got, tt.want)
		}
	}
}

func TestTaperEightBitSilence(t *testing.T) {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           []int{255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255},
		SourceBitDepth: 8,
	}
	TaperInPlace(buf, 0.2)
	if buf.Data[0] != 128 || buf.Data[10] != 128 {
		t.Fatalf("edges = %d, %d, want 128", buf.Data[0], buf.Data[10])
	}
	if buf.Data[5] != 255 {
		t.Fatalf("middle = %d, want 255", buf.Data[5])
	}
}

func TestSampleRange(t *testing.T) {
	tests := []struct {
		depth       int
		lo, hi, mid int
	}{
		{8, 0, 255, 128},
		{16, -32768, 32767, 0},
		{24, -8388608, 8388607, 0},
		{32, math.MinInt32, math.MaxInt32, 0},
		{0, math.MinInt32, math.MaxInt32, 0},
	}
	for _, tt := range tests {
		lo, hi, mid := sampleRange(tt.depth)
		if lo != tt.lo || hi != tt.hi || mid != tt.mid {
			t.Errorf("sampleRange(%d) = %d, %d, %d, want %d, %d, %d", tt.depth, lo, hi, mid, tt.lo, tt.hi, tt.mid)
		}
	}
}
