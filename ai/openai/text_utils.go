package openai

import "strings"

// flattenLines keeps every prompt entry on a single line.
func flattenLines(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func clampScore(s float64) float32 {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return float32(s)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
