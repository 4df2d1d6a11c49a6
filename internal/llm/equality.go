package llm

import (
	"strconv"
	"strings"
)

// NormalizeAnswer canonicalizes an answer for comparison: lowercase,
// trimmed, with currency markers, thousands separators and inner spaces
// removed.
func NormalizeAnswer(answer string) string {
	s := strings.ToLower(strings.TrimSpace(answer))
	for _, cut := range []string{"$", ",", " "} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return strings.TrimSuffix(s, ".")
}

// AnswersEqual reports whether a model response matches the expected
// answer. Numeric answers compare as numbers; otherwise the normalized
// forms must match exactly, or the final line of the response must end
// with the expected answer (models often prefix "The answer is ...").
func AnswersEqual(expected, actual string) bool {
	expNorm := NormalizeAnswer(expected)
	actNorm := NormalizeAnswer(actual)

	if expNorm == actNorm {
		return true
	}

	if expVal, err := strconv.ParseFloat(expNorm, 64); err == nil {
		if actVal, err := strconv.ParseFloat(actNorm, 64); err == nil {
			return expVal == actVal
		}
	}

	lines := strings.Split(strings.TrimSpace(actual), "\n")
	lastLine := NormalizeAnswer(lines[len(lines)-1])
	return expNorm != "" && strings.HasSuffix(lastLine, expNorm)
}
