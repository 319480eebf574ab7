// Package text provides utilities for text normalization and tokenization.
// The similarity signals in the dedup engine and the normalizer both build
// on these primitives so that every comparison sees identical token streams.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This correctly handles multi-byte characters including Japanese, Chinese and
// emoji by counting runes instead of bytes.
//
// Examples:
//
//	CountRunes("hello")     // returns 5 (ASCII text)
//	CountRunes("こんにちは")  // returns 5 (Japanese text)
//	CountRunes("")          // returns 0 (empty string)
func CountRunes(text string) int {
	return len([]rune(text))
}
