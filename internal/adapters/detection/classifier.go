// Package detection implements the rule-based threat classifier and the
// additive severity scorer.
//
// Classification runs in two passes over one address's aggregated record:
// the primary pass checks brute force and port scanning, the second pass
// appends SQL injection and DDoS findings without duplicating a kind that
// is already present. Ordering of findings is detection order, not
// severity order.
package detection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/soctools/logwarden/internal/domain"
)

// RuleConfig holds the classifier thresholds. Defaults mirror the shipped
// detection rules; every knob is overridable from configuration.
type RuleConfig struct {
	BruteForcePaths     []string // credential-guessing target substrings
	AuthFailureStatuses []string // statuses counted as auth failures
	BruteForceThreshold int      // auth failures needed to trigger

	ProbeStatuses       []string // statuses counted as scan probes
	ProbeThreshold      int      // probe responses needed to trigger
	UniquePathThreshold int      // distinct request signatures needed

	SQLPatterns []string // case-insensitive regex source strings

	DDoSRatePerMinute float64 // requests/minute above which DDoS fires
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		BruteForcePaths:     []string{"/login", "/wp-login.php", "/admin"},
		AuthFailureStatuses: []string{"401", "403"},
		BruteForceThreshold: 10,
		ProbeStatuses:       []string{"404", "400"},
		ProbeThreshold:      50,
		UniquePathThreshold: 20,
		SQLPatterns: []string{
			`UNION.*SELECT`,
			`SELECT.*FROM`,
			`1=1`,
			`DROP TABLE`,
		},
		DDoSRatePerMinute: 500,
	}
}

// RuleClassifier is a pure function over one ActivityRecord. Safe for
// concurrent use once constructed.
type RuleClassifier struct {
	config      RuleConfig
	sqlPatterns []*regexp.Regexp
}

// NewRuleClassifier compiles the configured SQL patterns. An invalid
// pattern is a configuration error and fails construction.
func NewRuleClassifier(config RuleConfig) (*RuleClassifier, error) {
	patterns := make([]*regexp.Regexp, 0, len(config.SQLPatterns))
	for _, src := range config.SQLPatterns {
		re, err := regexp.Compile(`(?i)` + src)
		if err != nil {
			return nil, fmt.Errorf("invalid SQL pattern %q: %w", src, err)
		}
		patterns = append(patterns, re)
	}
	return &RuleClassifier{config: config, sqlPatterns: patterns}, nil
}

// Classify returns the record's findings in detection order: brute force,
// port scan, then the second-pass SQL injection and DDoS checks.
func (c *RuleClassifier) Classify(rec *domain.ActivityRecord) []domain.Finding {
	var findings []domain.Finding

	if f, ok := c.checkBruteForce(rec); ok {
		findings = append(findings, f)
	}
	if f, ok := c.checkPortScan(rec); ok {
		findings = append(findings, f)
	}

	// Second pass. Kinds found above are never duplicated here; the two
	// sets are disjoint today but the guard keeps that a property of the
	// classifier rather than of the rule set.
	for _, f := range c.secondPass(rec) {
		if !hasKind(findings, f.Kind) {
			findings = append(findings, f)
		}
	}
	return findings
}

func (c *RuleClassifier) checkBruteForce(rec *domain.ActivityRecord) (domain.Finding, bool) {
	targeted := false
	for req := range rec.Requests {
		for _, path := range c.config.BruteForcePaths {
			if strings.Contains(req, path) {
				targeted = true
				break
			}
		}
		if targeted {
			break
		}
	}
	if !targeted {
		return domain.Finding{}, false
	}

	failures := rec.StatusSum(c.config.AuthFailureStatuses)
	if failures < c.config.BruteForceThreshold {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Kind:   domain.ThreatBruteForce,
		Detail: fmt.Sprintf("%d auth failures", failures),
	}, true
}

func (c *RuleClassifier) checkPortScan(rec *domain.ActivityRecord) (domain.Finding, bool) {
	probes := rec.StatusSum(c.config.ProbeStatuses)
	uniquePaths := len(rec.Requests)

	if probes < c.config.ProbeThreshold && uniquePaths < c.config.UniquePathThreshold {
		return domain.Finding{}, false
	}
	// Both counts are reported regardless of which condition fired.
	return domain.Finding{
		Kind:   domain.ThreatPortScan,
		Detail: fmt.Sprintf("%d errors, %d unique paths", probes, uniquePaths),
	}, true
}

func (c *RuleClassifier) secondPass(rec *domain.ActivityRecord) []domain.Finding {
	var findings []domain.Finding

	if c.matchesSQLPattern(rec) {
		findings = append(findings, domain.Finding{
			Kind:   domain.ThreatSQLInjection,
			Detail: "SQL pattern detected",
		})
	}

	// Rate is undefined when all traffic landed in one instant; the rule
	// stays silent rather than treating the rate as infinite.
	if rate := rec.RatePerMinute(); rate > c.config.DDoSRatePerMinute {
		findings = append(findings, domain.Finding{
			Kind:   domain.ThreatDDoS,
			Detail: fmt.Sprintf("%.0f req/min", rate),
		})
	}
	return findings
}

// matchesSQLPattern is evaluated once per record; at most one finding is
// emitted even when several requests or patterns match.
func (c *RuleClassifier) matchesSQLPattern(rec *domain.ActivityRecord) bool {
	for req := range rec.Requests {
		for _, re := range c.sqlPatterns {
			if re.MatchString(req) {
				return true
			}
		}
	}
	return false
}

func hasKind(findings []domain.Finding, kind domain.ThreatKind) bool {
	for _, f := range findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
