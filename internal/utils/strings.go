package utils

import "strings"

// NormalizeTicker trims whitespace and upper-cases a ticker symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseTickerList splits a comma-separated list of tickers, normalizes each
// one and drops empties and duplicates while keeping the first occurrence order.
// Returns nil for empty/whitespace-only input.
func ParseTickerList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, v := range strings.Split(s, ",") {
		ticker := NormalizeTicker(v)
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		result = append(result, ticker)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
