// Package textutil provides small text segmentation helpers shared by the
// generation pipeline.
package textutil

import "strings"

// sentenceEnders terminate a sentence. Closing quotes after the terminator
// are absorbed into the sentence.
const sentenceEnders = ".!?"

// FirstSentence returns the first sentence of s, trimmed. If s contains no
// sentence terminator the whole trimmed string is returned.
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(sentenceEnders, rune(s[i])) {
			continue
		}
		end := i + 1
		for end < len(s) && (s[end] == '"' || s[end] == '\'' || s[end] == ')') {
			end++
		}
		// Don't split on decimal points or abbreviated numbering.
		if end < len(s) && s[end] != ' ' && s[end] != '\n' && s[end] != '\t' {
			continue
		}
		return strings.TrimSpace(s[:end])
	}
	return s
}

// EvidenceSentences extracts the first sentence of each text, keeping only
// sentences of at least minLen characters and dropping exact duplicates.
// Order follows the input texts.
func EvidenceSentences(texts []string, minLen int) []string {
	seen := make(map[string]bool, len(texts))
	var out []string
	for _, t := range texts {
		sentence := FirstSentence(t)
		if len(sentence) < minLen || seen[sentence] {
			continue
		}
		seen[sentence] = true
		out = append(out, sentence)
	}
	return out
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
