package assessment

import (
	"time"
)

// Verdict enum
type Verdict string

const (
	VerdictSafe       Verdict = "Safe"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictPhishing   Verdict = "Phishing"
)

// ParseVerdict accepts only the exact enum spellings.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictSafe, VerdictSuspicious, VerdictPhishing:
		return Verdict(s), true
	}
	return "", false
}

// VerdictFromScore maps a 0-100 score to a verdict (>=70 phishing, >=40 suspicious).
func VerdictFromScore(score int) Verdict {
	switch {
	case score >= 70:
		return VerdictPhishing
	case score >= 40:
		return VerdictSuspicious
	default:
		return VerdictSafe
	}
}

// ClampScore keeps a risk score inside [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Result value object, same shape for the AI path and the heuristic path
type Result struct {
	Verdict   Verdict  `json:"verdict"`
	RiskScore int      `json:"risk_score"`
	Reasons   []string `json:"reasons"`
	Domain    string   `json:"domain,omitempty"`
}

// HistoryEntry is one evaluation. Created once, never updated.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	UsedAI    bool      `json:"used_ai"`
	Model     *string   `json:"model"`
	Result    Result    `json:"result"`
	AIError   string    `json:"ai_error,omitempty"`
}

// ModelInfo describes an upstream model usable for assessments.
type ModelInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Methods     []string `json:"methods,omitempty"`
}
