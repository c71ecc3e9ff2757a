package audio

import (
	"math"
	"testing"
	"time"
)

func TestResample_SameRate(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
	output := Resample(input, 24000, 24000)
	if len(output) != len(input) {
		t.Fatalf("expected same length %d, got %d", len(input), len(output))
	}
	for i := range input {
		if output[i] != input[i] {
			t.Errorf("sample %d: expected %f, got %f", i, input[i], output[i])
		}
	}
}

func TestResample_Upsample(t *testing.T) {
	output := Resample([]float32{0.0, 1.0}, 12000, 24000)
	if len(output) != 4 {
		t.Fatalf("expected length 4, got %d", len(output))
	}
	if math.Abs(float64(output[0])) > 0.01 {
		t.Errorf("first sample should be ~0, got %f", output[0])
	}
	if math.Abs(float64(output[len(output)-1]-1.0)) > 0.01 {
		t.Errorf("last sample should be ~1, got %f", output[len(output)-1])
	}
}

func TestResample_Downsample(t *testing.T) {
	output := Resample([]float32{0.0, 0.25, 0.5, 0.75, 1.0}, 48000, 24000)
	if len(output) != 3 {
		t.Errorf("expected length 3, got %d", len(output))
	}
}

func TestResample_InvalidRate(t *testing.T) {
	input := []float32{0.5}
	if out := Resample(input, 0, 24000); len(out) != 1 {
		t.Errorf("expected input returned unchanged, got %d samples", len(out))
	}
}

func TestFloat32ToPCM16LE(t *testing.T) {
	pcm := Float32ToPCM16LE([]float32{0, 1, -1, 2, -2})
	if len(pcm) != 10 {
		t.Fatalf("expected 10 bytes, got %d", len(pcm))
	}

	samples := PCM16LEToFloat32(pcm)
	want := []float32{0, 32767.0 / 32768.0, -32767.0 / 32768.0, 32767.0 / 32768.0, -32767.0 / 32768.0}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], samples[i])
		}
	}
}

func TestFloat32ToPCM16LE_LittleEndian(t *testing.T) {
	pcm := Float32ToPCM16LE([]float32{1})
	if pcm[0] != 0xFF || pcm[1] != 0x7F {
		t.Errorf("expected ff 7f, got %x %x", pcm[0], pcm[1])
	}
}

func TestPCM16LEToFloat32_OddLength(t *testing.T) {
	samples := PCM16LEToFloat32([]byte{0x00, 0x80, 0x01})
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0] != -1 {
		t.Errorf("expected -1, got %f", samples[0])
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("empty frame: expected 0, got %f", got)
	}
	if got := RMS(make([]float32, 128)); got != 0 {
		t.Errorf("silent frame: expected 0, got %f", got)
	}

	full := make([]float32, 64)
	for i := range full {
		full[i] = 1
		if i%2 == 1 {
			full[i] = -1
		}
	}
	if got := RMS(full); math.Abs(got-1) > 1e-9 {
		t.Errorf("full scale: expected 1, got %f", got)
	}
}

func TestDurationAndSamples(t *testing.T) {
	if got := Duration(24000, OutputSampleRate); got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
	if got := Duration(4096, InputSampleRate); got != 256*time.Millisecond {
		t.Errorf("expected 256ms, got %v", got)
	}
	if got := Duration(10, 0); got != 0 {
		t.Errorf("expected 0 for invalid rate, got %v", got)
	}
	if got := Samples(500*time.Millisecond, OutputSampleRate); got != 12000 {
		t.Errorf("expected 12000 samples, got %d", got)
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		mime string
		rate int
		ok   bool
	}{
		{"audio/pcm;rate=24000", 24000, true},
		{"audio/pcm; rate=16000", 16000, true},
		{"audio/pcm", 0, false},
		{"audio/pcm;rate=abc", 0, false},
		{PCMMimeType(16000), 16000, true},
	}
	for _, tt := range tests {
		rate, ok := ParseRate(tt.mime)
		if rate != tt.rate || ok != tt.ok {
			t.Errorf("ParseRate(%q) = %d, %v; want %d, %v", tt.mime, rate, ok, tt.rate, tt.ok)
		}
	}
}
