package attune

import (
	"fmt"
	"strings"
)

// Input limits enforced client-side before a request leaves the process.
// They mirror the platform's documented limits.
const (
	MaxTTSTextLength        = 5000
	MaxExpressionTextLength = 10000
	MaxUploadSize           = 10 << 20
	MaxVoiceNameLength      = 100

	MinSpeakingRate = 0.5
	MaxSpeakingRate = 2.0
	MinPitch        = 0.5
	MaxPitch        = 2.0
)

// ValidSampleRates lists the PCM sample rates the platform accepts, in Hz.
var ValidSampleRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

// ValidateTextLength checks that text is non-empty and within max runes.
func ValidateTextLength(field, text string, max int) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Message: field + " must not be empty"}
	}
	if n := len([]rune(text)); n > max {
		return &ValidationError{Message: fmt.Sprintf("%s exceeds %d characters (got %d)", field, max, n)}
	}
	return nil
}

// ClampSpeakingRate forces a speaking rate into the supported range.
func ClampSpeakingRate(rate float64) float64 {
	return clamp(rate, MinSpeakingRate, MaxSpeakingRate)
}

// ClampPitch forces a pitch multiplier into the supported range.
func ClampPitch(pitch float64) float64 {
	return clamp(pitch, MinPitch, MaxPitch)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateSampleRate checks rate against ValidSampleRates.
func ValidateSampleRate(rate int) error {
	for _, r := range ValidSampleRates {
		if rate == r {
			return nil
		}
	}
	return &ValidationError{Message: fmt.Sprintf("unsupported sample rate %d Hz", rate)}
}

// ValidateUploadSize checks that a payload fits the upload limit.
func ValidateUploadSize(field string, size int) error {
	if size > MaxUploadSize {
		return &ValidationError{Message: fmt.Sprintf("%s exceeds %d bytes (got %d)", field, MaxUploadSize, size)}
	}
	return nil
}

// ValidateAPIKey rejects keys that are obviously unusable before any
// request is made with them.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &ValidationError{Message: "API key must not be empty"}
	}
	if strings.EqualFold(key, "dummy") {
		return &ValidationError{Message: "API key is a placeholder value"}
	}
	if len(key) < 20 {
		return &ValidationError{Message: "API key is too short"}
	}
	return nil
}

// ValidateVoiceName checks a custom voice name.
func ValidateVoiceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Message: "voice name must not be empty"}
	}
	if len([]rune(name)) > MaxVoiceNameLength {
		return &ValidationError{Message: fmt.Sprintf("voice name exceeds %d characters", MaxVoiceNameLength)}
	}
	return nil
}

// ValidateLanguageTag checks code for rough BCP 47 shape: a 2-3 letter
// primary subtag, optionally followed by dash-separated subtags.
func ValidateLanguageTag(code string) error {
	parts := strings.Split(code, "-")
	primary := parts[0]
	if len(primary) < 2 || len(primary) > 3 || !isAlpha(primary) {
		return &ValidationError{Message: fmt.Sprintf("invalid language tag %q", code)}
	}
	for _, sub := range parts[1:] {
		if sub == "" || len(sub) > 8 {
			return &ValidationError{Message: fmt.Sprintf("invalid language tag %q", code)}
		}
	}
	return nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
