package urlcheck

import (
	"fmt"
	"net/netip"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

// NoIndicatorsReason is reported when no rule fired.
const NoIndicatorsReason = "No strong phishing indicators found (manual check)."

const maxURLLength = 120

var (
	suspiciousTLDs = []string{".zip", ".top", ".xyz", ".click", ".loan", ".tk", ".ml", ".ga", ".cf", ".gq"}

	shorteners = map[string]bool{
		"bit.ly":      true,
		"tinyurl.com": true,
		"t.co":        true,
		"goo.gl":      true,
		"cutt.ly":     true,
	}

	brandKeywords = []string{
		"google", "gmail", "microsoft", "office", "outlook", "apple", "icloud",
		"facebook", "instagram", "whatsapp", "telegram", "amazon", "flipkart",
		"netflix", "paypal", "bank", "sbi", "hdfc", "icici",
	}

	loginKeywords = []string{"login", "verify", "secure", "update"}

	// only a subset of the brands above have an official domain listed
	officialDomains = []string{"google.com", "microsoft.com", "apple.com", "amazon.com", "paypal.com"}
)

// Score runs the manual phishing rules against a raw URL. It is deterministic,
// does no I/O and accepts any input. Reasons are reported in rule order.
func Score(raw string) assessment.Result {
	info := Normalize(raw)
	u := strings.ToLower(info.NormalizedURL)
	host := info.Host

	score := 0
	reasons := make([]string, 0, 8)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if strings.HasPrefix(u, "http://") {
		add(15, "URL uses HTTP instead of HTTPS")
	}

	// textual check on the raw input, independent of credential stripping
	if strings.Contains(raw, "@") {
		add(20, "URL contains '@' (can hide real domain)")
	}

	if utf8.RuneCountInString(u) > maxURLLength {
		add(10, "Very long URL")
	}

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			add(10, fmt.Sprintf("Suspicious TLD detected: %s", tld))
			break
		}
	}

	if isIPLiteral(host) {
		add(25, "IP address used instead of a domain name")
	}

	if strings.Count(host, "-") >= 3 {
		add(10, "Too many hyphens in domain")
	}

	if shorteners[host] {
		add(20, "URL shortener detected")
	}

	if containsAny(u, brandKeywords) && containsAny(u, loginKeywords) {
		if hasAnySuffix(host, officialDomains) {
			add(5, "Brand keyword found but domain looks official")
		} else {
			add(25, "Possible brand impersonation + login/verify keywords")
		}
	}

	score = assessment.ClampScore(score)
	if len(reasons) == 0 {
		reasons = append(reasons, NoIndicatorsReason)
	}

	return assessment.Result{
		Verdict:   assessment.VerdictFromScore(score),
		RiskScore: score,
		Reasons:   reasons,
		Domain:    host,
	}
}

func isIPLiteral(host string) bool {
	if host == "" {
		return false
	}
	_, err := netip.ParseAddr(host)
	return err == nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
