// Package langdetect guesses the source language of book sentences so cache
// entries can record where a translation came from.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// detectionLanguages mirrors the languages the translation layer can target.
// Restricting the detector keeps it from guessing languages we would never
// act on anyway.
var detectionLanguages = []lingua.Language{
	lingua.Arabic,
	lingua.Chinese,
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Indonesian,
	lingua.Italian,
	lingua.Japanese,
	lingua.Korean,
	lingua.Polish,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Spanish,
	lingua.Thai,
	lingua.Turkish,
	lingua.Vietnamese,
}

// minDetectionLetters is the smallest sample worth guessing on. A short
// sentence like "Ah." carries no usable signal.
const minDetectionLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter code of the detected language, or ""
// when the sample is too short or the detector has no confident answer.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minDetectionLetters {
		return ""
	}

	detected, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectionLanguages...).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
