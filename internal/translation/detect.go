package translation

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// AutoSourceLang asks the provider to detect the source language itself.
const AutoSourceLang = "auto"

// detectSampleRunes bounds how much text is handed to the detector.
const detectSampleRunes = 2000

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectSource returns the ISO 639-1 code of text, or "" when it cannot tell.
func DetectSource(text string) string {
	sample := []rune(strings.TrimSpace(text))
	if len(sample) > detectSampleRunes {
		sample = sample[:detectSampleRunes]
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(string(sample))
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})
	return detector
}
