package prompt

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

// UnclearReasons replaces a missing or empty reasons list from the model.
const UnclearReasons = "AI analysis returned unclear reasons."

const defaultRiskScore = 50

// greedy: first '{' through last '}', across newlines
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a cybersecurity assistant.
Analyze URLs for phishing risk and return STRICT JSON only.

Return JSON in this format:
{
  "verdict": "Safe" | "Suspicious" | "Phishing",
  "risk_score": 0-100,
  "reasons": ["reason1", "reason2", "reason3"]
}

Rules:
- No markdown
- No extra text
- reasons must be an array of strings`
}

// GetUserPrompt builds the message carrying the URL under review.
func GetUserPrompt(url string) string {
	return fmt.Sprintf("Analyze this URL for phishing risk and return STRICT JSON only.\n\nURL: %s", url)
}

// BuildPrompt returns a single-message prompt for providers without a system role.
func BuildPrompt(url string) string {
	return GetSystemPrompt() + "\n\n" + fmt.Sprintf("URL: %s\n", url)
}

// ExtractJSON returns the largest brace-delimited span found in text.
func ExtractJSON(text string) (string, error) {
	m := jsonObject.FindString(text)
	if m == "" {
		return "", fmt.Errorf("%w: model did not return JSON: %s", assessment.ErrMalformedResponse, Truncate(text, 200))
	}
	return m, nil
}

// ParseAssessment reads the model output into a Result. Only a missing or
// unparsable JSON object is an error; bad fields are replaced with defaults.
func ParseAssessment(text string) (assessment.Result, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return assessment.Result{}, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return assessment.Result{}, fmt.Errorf("%w: invalid JSON: %v", assessment.ErrMalformedResponse, err)
	}

	verdict := assessment.VerdictSuspicious
	if s, ok := obj["verdict"].(string); ok {
		if v, ok := assessment.ParseVerdict(s); ok {
			verdict = v
		}
	}

	return assessment.Result{
		Verdict:   verdict,
		RiskScore: assessment.ClampScore(coerceScore(obj["risk_score"])),
		Reasons:   coerceReasons(obj["reasons"]),
	}, nil
}

func coerceScore(v any) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return defaultRiskScore
		}
		if n > 1000 {
			return 1000
		}
		if n < -1000 {
			return -1000
		}
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return defaultRiskScore
}

func coerceReasons(v any) []string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return []string{UnclearReasons}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		out = append(out, string(b))
	}
	if len(out) == 0 {
		return []string{UnclearReasons}
	}
	return out
}

// Truncate shortens s to at most n bytes without splitting a rune. Invalid
// UTF-8 in s is replaced so the result is always safe to store.
func Truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
