package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats tracks what a repair pass did to a malformed payload.
type RepairStats struct {
	OriginalBytes    int           `json:"original_bytes"`
	RepairedBytes    int           `json:"repaired_bytes"`
	ErrorsFixed      int           `json:"errors_fixed"`
	RepairTime       time.Duration `json:"repair_time"`
	RepairStrategies []string      `json:"repair_strategies"`
	WasRepaired      bool          `json:"was_repaired"`
}

// RepairJSON attempts to fix malformed JSON emitted by a model. Cheap
// targeted fixes run first, the jsonrepair library is the fallback.
func RepairJSON(raw string) (string, RepairStats, error) {
	startTime := time.Now()
	stats := RepairStats{OriginalBytes: len(raw)}

	var probe interface{}
	if json.Unmarshal([]byte(raw), &probe) == nil {
		stats.RepairedBytes = len(raw)
		stats.RepairTime = time.Since(startTime)
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired := raw

	if strings.Contains(repaired, ",}") || strings.Contains(repaired, ",]") {
		repaired = removeTrailingCommas(repaired)
		stats.RepairStrategies = append(stats.RepairStrategies, "trailing_commas")
		stats.ErrorsFixed++
	}

	if needsCompletion(repaired) {
		if fixed := completeJSON(repaired); fixed != repaired {
			repaired = fixed
			stats.RepairStrategies = append(stats.RepairStrategies, "completion")
			stats.ErrorsFixed++
		}
	}

	if json.Unmarshal([]byte(repaired), &probe) != nil {
		if fixed, err := jsonrepair.JSONRepair(repaired); err == nil && fixed != repaired {
			repaired = fixed
			stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
			stats.ErrorsFixed++
		}
	}

	stats.RepairedBytes = len(repaired)
	stats.RepairTime = time.Since(startTime)

	if json.Unmarshal([]byte(repaired), &probe) != nil {
		return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.RepairStrategies))
	}
	return repaired, stats, nil
}

var (
	trailingCommaBrace   = regexp.MustCompile(`,\s*}`)
	trailingCommaBracket = regexp.MustCompile(`,\s*]`)
)

func removeTrailingCommas(s string) string {
	s = trailingCommaBrace.ReplaceAllString(s, "}")
	s = trailingCommaBracket.ReplaceAllString(s, "]")
	return s
}

func needsCompletion(s string) bool {
	s = strings.TrimSpace(s)
	openBraces := strings.Count(s, "{") - strings.Count(s, "}")
	openBrackets := strings.Count(s, "[") - strings.Count(s, "]")
	return openBraces > 0 || openBrackets > 0
}

// completeJSON closes unmatched braces and brackets, last opened first.
// Characters inside string literals are skipped so that braces in text do
// not confuse the balance.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)

	var stack []rune
	inString := false
	escaped := false
	for _, char := range s {
		if escaped {
			escaped = false
			continue
		}
		switch char {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, char)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// Unterminated string literal has to be closed before any structure.
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// ExtractJSON pulls the JSON document out of a model response that may wrap
// it in markdown fences or surround it with prose. Returns "" when nothing
// resembling JSON is found.
func ExtractJSON(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return ""
	}
	opener := raw[start]
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(raw, closer)
	if end <= start {
		// Truncated output. Hand back what we have and let repair finish it.
		return strings.TrimSpace(raw[start:])
	}
	return strings.TrimSpace(raw[start : end+1])
}
