package audio

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// InputSampleRate is the microphone rate the live endpoint expects.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of synthesized speech returned by the live endpoint.
	OutputSampleRate = 24000

	pcm16Scale = 32768.0
)

// Resample converts mono float samples between rates with linear interpolation.
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return input
	}

	ratio := float64(toRate) / float64(fromRate)
	output := make([]float32, int(math.Ceil(float64(len(input))*ratio)))

	for i := range output {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(input) {
			output[i] = input[srcIdx]*(1-frac) + input[srcIdx+1]*frac
		} else if srcIdx < len(input) {
			output[i] = input[srcIdx]
		}
	}
	return output
}

// Float32ToPCM16LE clamps samples to [-1, 1] and encodes them as 16-bit little-endian PCM.
func Float32ToPCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * (pcm16Scale - 1)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16LEToFloat32 decodes 16-bit little-endian PCM. A trailing odd byte is ignored.
func PCM16LEToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / pcm16Scale
	}
	return out
}

// RMS returns the root mean square amplitude of a frame, 0 for an empty frame.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Duration is the play time of n mono samples at rate.
func Duration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// Samples converts a duration on a clock running at rate to the nearest sample index.
func Samples(d time.Duration, rate int) int64 {
	return int64(math.Round(float64(d) * float64(rate) / float64(time.Second)))
}

// PCMMimeType builds the mime tag used for raw PCM payloads, e.g. "audio/pcm;rate=16000".
func PCMMimeType(rate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(rate)
}

// ParseRate extracts the rate parameter from a PCM mime tag.
func ParseRate(mimeType string) (int, bool) {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		rate, err := strconv.Atoi(value)
		if err != nil || rate <= 0 {
			return 0, false
		}
		return rate, true
	}
	return 0, false
}
