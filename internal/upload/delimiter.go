package upload

import "strings"

var candidateDelimiters = []rune{',', ';', '\t'}

// DetectDelimiter picks the delimiter whose per-line count is highest and
// most consistent across the first non-empty lines. Comma wins when nothing
// else is found.
func DetectDelimiter(content string) rune {
	sample := make([]string, 0, 5)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sample = append(sample, trimmed)
			if len(sample) == 5 {
				break
			}
		}
	}
	if len(sample) == 0 {
		return ','
	}

	best, bestScore := ',', 0.0
	for _, delim := range candidateDelimiters {
		counts := make([]int, len(sample))
		sum := 0
		for i, line := range sample {
			counts[i] = strings.Count(line, string(delim))
			sum += counts[i]
		}
		avg := float64(sum) / float64(len(sample))
		if avg == 0 {
			continue
		}
		variance := 0.0
		for _, c := range counts {
			d := float64(c) - avg
			variance += d * d
		}
		variance /= float64(len(sample))

		if score := avg / (1 + variance); score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}
