package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
	log "github.com/golang/glog"
)

// LoadWAVFile decodes the WAV file at path into a mono track.
func LoadWAVFile(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	t := NewTrack(filepath.Base(path), buf)
	log.Infof("loaded %s: %d frames at %d Hz, %d-bit", t.Name, t.Frames(), buf.Format.SampleRate, buf.SourceBitDepth)
	return t, nil
}

// DecodeWAV reads a whole WAV stream and reduces it to one channel.
func DecodeWAV(r io.ReadSeeker) (*audio.IntBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("WAV file has no sample rate")
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	return Downmix(buf)
}

// Downmix averages the channels of buf into a new mono buffer with the same
// sample rate and bit depth. Mono input is returned unchanged.
func Downmix(buf *audio.IntBuffer) (*audio.IntBuffer, error) {
	if buf.Format.NumChannels <= 1 {
		return buf, nil
	}
	fb := buf.AsFloatBuffer()
	// MonoDownmix rewrites the format in place; keep the decoder's untouched.
	fb.Format = &audio.Format{NumChannels: buf.Format.NumChannels, SampleRate: buf.Format.SampleRate}
	if err := transforms.MonoDownmix(fb); err != nil {
		return nil, fmt.Errorf("failed to downmix %d channels: %w", buf.Format.NumChannels, err)
	}
	lo, hi, _ := sampleRange(buf.SourceBitDepth)
	out := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: buf.Format.SampleRate},
		Data:           make([]int, len(fb.Data)),
		SourceBitDepth: buf.SourceBitDepth,
	}
	for i, v := range fb.Data {
		out.Data[i] = saturate(math.Round(v), lo, hi)
	}
	return out, nil
}
