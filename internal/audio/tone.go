package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Tone synthesizes mono PCM16LE sine audio. The mock platform uses it to
// produce deterministic, audible fixtures.
func Tone(freq float64, d time.Duration, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	n := int(float64(sampleRate) * d.Seconds())
	if n < 1 {
		n = 1
	}
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		v := int16(s * 0.3 * math.MaxInt16)
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(v))
	}
	return pcm
}

// ToneWAV is Tone wrapped in a WAV container.
func ToneWAV(freq float64, d time.Duration, sampleRate int) []byte {
	wav, err := EncodeWAV(Tone(freq, d, sampleRate), sampleRate, 1)
	if err != nil {
		// bytes.Buffer writes cannot fail
		panic(err)
	}
	return wav
}
