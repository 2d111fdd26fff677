package security

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxScanBytes bounds how much of an input the detector inspects.
// Inputs beyond the bound are scanned in prefix only and flagged, keeping
// analysis time linear in the bound rather than the input.
const DefaultMaxScanBytes = 1 << 20

// Weights maps each violation type to the fixed score contribution a match
// in that category adds. The defaults preserve the relative ordering the
// detector was calibrated with; magnitudes are configuration.
type Weights map[ViolationType]int

// DefaultWeights returns the default category weight calibration
func DefaultWeights() Weights {
	return Weights{
		ViolationEvalUsage:             50,
		ViolationDeserializationGadget: 45,
		ViolationPathTraversal:         40,
		ViolationDangerousCommand:      40,
		ViolationCommandInjection:      35,
		ViolationSensitiveFileAccess:   35,
		ViolationSQLInjection:          30,
		ViolationTemplateInjection:     30,
		ViolationXXE:                   30,
		ViolationPrivilegeEscalation:   30,
		ViolationScriptInjection:       25,
		ViolationNoSQLInjection:        25,
		ViolationExpressionInjection:   25,
		ViolationLDAPInjection:         20,
		ViolationXPathInjection:        20,
		ViolationUnicodeAbuse:          15,
		ViolationCSVInjection:          10,
		ViolationOversizedInput:        5,
	}
}

// pattern is a single compiled detection rule inside a category
type pattern struct {
	id          string
	re          *regexp.Regexp
	description string
}

// category groups the patterns for one violation type
type category struct {
	violationType  ViolationType
	severity       Severity
	recommendation string
	patterns       []pattern
}

// Detector runs an ordered battery of category checks over raw input
// strings. It is a pure component: no I/O, no shared state, safe for
// concurrent use after construction. Matching is RE2-based, so evaluation
// time is linear in the scanned input regardless of pattern shape.
type Detector struct {
	weights      Weights
	categories   []category
	maxScanBytes int
}

// DetectorOption customizes detector construction
type DetectorOption func(*Detector)

// WithMaxScanBytes overrides the input scan bound
func WithMaxScanBytes(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.maxScanBytes = n
		}
	}
}

// WithWeights overrides individual category weights; unspecified
// categories keep their defaults
func WithWeights(overrides Weights) DetectorOption {
	return func(d *Detector) {
		for vt, w := range overrides {
			d.weights[vt] = w
		}
	}
}

// NewDetector builds a detector with all pattern tables compiled once
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		weights:      DefaultWeights(),
		categories:   buildCategories(),
		maxScanBytes: DefaultMaxScanBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AnalyzeValue analyzes an arbitrary value. Non-string values (including
// nil) are trivially secure: the detector never fails on malformed input.
func (d *Detector) AnalyzeValue(v interface{}) AnalysisResult {
	s, ok := v.(string)
	if !ok {
		return AnalysisResult{IsSecure: true, Violations: []Violation{}, RiskScore: 0}
	}
	return d.Analyze(s)
}

// Analyze runs the full category battery over input and returns the
// detected violations, a clamped risk score, and a sanitized rendering of
// the input when violations exist.
func (d *Detector) Analyze(input string) AnalysisResult {
	result := AnalysisResult{
		IsSecure:   true,
		Violations: []Violation{},
		RiskScore:  0,
	}
	if input == "" {
		return result
	}

	scanned := input
	if len(input) > d.maxScanBytes {
		scanned = input[:d.maxScanBytes]
		result.Violations = append(result.Violations, Violation{
			Type:           ViolationOversizedInput,
			PatternID:      "input-length-bound",
			Severity:       SeverityLow,
			Description:    "input exceeds the scan bound; only a prefix was analyzed",
			Recommendation: "reject or truncate unusually large inputs before processing",
		})
		result.RiskScore += d.weights[ViolationOversizedInput]
	}

	for _, cat := range d.categories {
		for _, p := range cat.patterns {
			if p.re.MatchString(scanned) {
				result.Violations = append(result.Violations, Violation{
					Type:           cat.violationType,
					PatternID:      p.id,
					Severity:       cat.severity,
					Description:    p.description,
					Recommendation: cat.recommendation,
				})
				result.RiskScore += d.weights[cat.violationType]
			}
		}
	}

	for _, v := range detectUnicodeAbuse(scanned) {
		result.Violations = append(result.Violations, v)
		result.RiskScore += d.weights[ViolationUnicodeAbuse]
	}

	if result.RiskScore > 100 {
		result.RiskScore = 100
	}
	if len(result.Violations) > 0 {
		result.IsSecure = false
		result.SanitizedInput = Sanitize(input)
	}
	return result
}

// buildCategories compiles the ordered detection battery. Pattern order
// within the battery is stable so results are deterministic per input.
func buildCategories() []category {
	return []category{
		{
			violationType:  ViolationPathTraversal,
			severity:       SeverityCritical,
			recommendation: "resolve and validate paths against an allow-listed root before use",
			patterns: []pattern{
				{"dot-dot-slash", regexp.MustCompile(`\.\./|\.\.\\`), "relative parent-directory traversal sequence"},
				{"encoded-traversal", regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|/|\\)`), "URL-encoded traversal sequence"},
				{"double-encoded-traversal", regexp.MustCompile(`(?i)%252e%252e`), "double URL-encoded traversal sequence"},
				{"unicode-escape-traversal", regexp.MustCompile(`(?i)\\u002e\\u002e`), "unicode-escaped traversal sequence"},
				{"overlong-utf8-traversal", regexp.MustCompile(`(?i)(%c0%ae|%c0%af|%e0%80%ae)`), "overlong UTF-8 encoded traversal byte"},
			},
		},
		{
			violationType:  ViolationCommandInjection,
			severity:       SeverityHigh,
			recommendation: "pass arguments as a vector, never through a shell; reject metacharacters",
			patterns: []pattern{
				{"shell-metachar-chain", regexp.MustCompile(`[;&|]\s*[A-Za-z0-9_/.]`), "shell command chaining metacharacter"},
				{"command-substitution", regexp.MustCompile("\\$\\([^)]*\\)|`[^`]*`"), "shell command substitution"},
				{"ifs-abuse", regexp.MustCompile(`\$\{?IFS\}?`), "IFS environment variable abuse"},
				{"env-var-expansion", regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*[:%#]`), "parameter expansion with mutation operators"},
				{"newline-command", regexp.MustCompile(`(\n|%0a)\s*[A-Za-z]+`), "newline-separated command injection"},
			},
		},
		{
			violationType:  ViolationDangerousCommand,
			severity:       SeverityHigh,
			recommendation: "block destructive commands outright and require explicit operator confirmation",
			patterns: []pattern{
				{"recursive-delete", regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f|-[a-z]*f[a-z]*r|--recursive)\b`), "recursive force delete"},
				{"filesystem-format", regexp.MustCompile(`(?i)\b(mkfs|fdisk|parted)\b`), "filesystem formatting command"},
				{"raw-disk-write", regexp.MustCompile(`(?i)\bdd\s+(if|of)=`), "raw disk read/write via dd"},
				{"fork-bomb", regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`), "shell fork bomb"},
				{"shutdown-command", regexp.MustCompile(`(?i)\b(shutdown|halt|poweroff)\b\s`), "system shutdown command"},
			},
		},
		{
			violationType:  ViolationScriptInjection,
			severity:       SeverityHigh,
			recommendation: "HTML-encode untrusted output and apply a restrictive content security policy",
			patterns: []pattern{
				{"script-tag", regexp.MustCompile(`(?i)<\s*script\b`), "script tag injection"},
				{"event-handler", regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus)\s*=`), "inline event handler injection"},
				{"javascript-url", regexp.MustCompile(`(?i)javascript\s*:`), "javascript: URL scheme"},
				{"iframe-tag", regexp.MustCompile(`(?i)<\s*iframe\b`), "iframe injection"},
			},
		},
		{
			violationType:  ViolationSQLInjection,
			severity:       SeverityHigh,
			recommendation: "use parameterized queries; never concatenate input into SQL",
			patterns: []pattern{
				{"quote-boolean", regexp.MustCompile(`(?i)('|%27)\s*(or|and)\s+[\w'"]+\s*=`), "quoted boolean tautology"},
				{"union-select", regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`), "UNION SELECT data extraction"},
				{"stacked-drop", regexp.MustCompile(`(?i);\s*(drop|truncate|delete)\s+(table|from)\b`), "stacked destructive statement"},
				{"comment-terminator", regexp.MustCompile(`(?i)('|%27)\s*(--|#|/\*)`), "quote followed by SQL comment"},
			},
		},
		{
			violationType:  ViolationNoSQLInjection,
			severity:       SeverityMedium,
			recommendation: "validate operator keys and types before building document queries",
			patterns: []pattern{
				{"where-operator", regexp.MustCompile(`\$where\b`), "$where JavaScript evaluation operator"},
				{"comparison-operator", regexp.MustCompile(`\$(ne|gt|gte|lt|lte|nin|regex)\b`), "query comparison operator injection"},
			},
		},
		{
			violationType:  ViolationTemplateInjection,
			severity:       SeverityHigh,
			recommendation: "render untrusted values as data, never as template source",
			patterns: []pattern{
				{"mustache-expression", regexp.MustCompile(`\{\{[^}]*\}\}`), "template expression delimiters"},
				{"jinja-statement", regexp.MustCompile(`\{%[^%]*%\}`), "template statement block"},
				{"erb-expression", regexp.MustCompile(`<%[^%]*%>`), "ERB/JSP expression block"},
				{"dollar-brace", regexp.MustCompile(`\$\{[^}]*\}`), "interpolation expression"},
			},
		},
		{
			violationType:  ViolationEvalUsage,
			severity:       SeverityCritical,
			recommendation: "remove dynamic code evaluation; no safe sanitization exists for eval",
			patterns: []pattern{
				{"eval-call", regexp.MustCompile(`(?i)\beval\s*\(`), "dynamic code evaluation"},
				{"exec-call", regexp.MustCompile(`(?i)\b(exec|execfile)\s*\(`), "dynamic code execution"},
				{"system-call", regexp.MustCompile(`(?i)\b(system|popen|subprocess\.call)\s*\(`), "process spawn from input"},
				{"function-constructor", regexp.MustCompile(`(?i)new\s+Function\s*\(`), "Function constructor evaluation"},
			},
		},
		{
			violationType:  ViolationPrivilegeEscalation,
			severity:       SeverityHigh,
			recommendation: "run with least privilege; reject inputs that reference privilege controls",
			patterns: []pattern{
				{"sudo-invocation", regexp.MustCompile(`(?i)\bsudo\s`), "sudo invocation"},
				{"su-switch", regexp.MustCompile(`(?i)\bsu\s+(-|root)\b`), "user switch to root"},
				{"world-writable-chmod", regexp.MustCompile(`(?i)\bchmod\s+([0-7])?77[0-7]?\b`), "world-writable permission change"},
				{"setuid-marker", regexp.MustCompile(`(?i)\b(setuid|setgid|chmod\s+\+s)\b`), "setuid/setgid manipulation"},
				{"chown-root", regexp.MustCompile(`(?i)\bchown\s+root\b`), "ownership transfer to root"},
			},
		},
		{
			violationType:  ViolationSensitiveFileAccess,
			severity:       SeverityHigh,
			recommendation: "deny access to system credential stores and secrets files",
			patterns: []pattern{
				{"etc-credentials", regexp.MustCompile(`(?i)/etc/(passwd|shadow|sudoers|hosts)`), "system credential file reference"},
				{"ssh-keys", regexp.MustCompile(`(?i)\.ssh/(id_rsa|id_ed25519|id_ecdsa|authorized_keys)`), "SSH key material reference"},
				{"cloud-credentials", regexp.MustCompile(`(?i)\.(aws|azure|gcloud|kube)/(credentials|config)`), "cloud credential file reference"},
				{"proc-environ", regexp.MustCompile(`(?i)/proc/(self|\d+)/environ`), "process environment exposure"},
				{"env-file", regexp.MustCompile(`(?i)(^|[/\\])\.env(\.|$|\s)`), "dotenv secrets file reference"},
			},
		},
		{
			violationType:  ViolationDeserializationGadget,
			severity:       SeverityCritical,
			recommendation: "never deserialize untrusted data; use schema-validated formats",
			patterns: []pattern{
				{"java-serialized", regexp.MustCompile(`(?i)(rO0AB|aced0005|ObjectInputStream|readObject\s*\()`), "Java serialization stream or reader"},
				{"python-pickle", regexp.MustCompile(`(?i)(pickle\.loads|__reduce__|cPickle)`), "Python pickle gadget"},
				{"php-object", regexp.MustCompile(`O:\d+:"[A-Za-z_\\]+"`), "PHP serialized object"},
				{"gadget-chain-tool", regexp.MustCompile(`(?i)\bysoserial\b`), "known gadget chain generator"},
			},
		},
		{
			violationType:  ViolationXXE,
			severity:       SeverityHigh,
			recommendation: "disable DTD processing and external entity resolution in XML parsers",
			patterns: []pattern{
				{"doctype-subset", regexp.MustCompile(`(?i)<!DOCTYPE[^>]*\[`), "DOCTYPE with internal subset"},
				{"external-entity", regexp.MustCompile(`(?i)<!ENTITY[^>]*\b(SYSTEM|PUBLIC)\b`), "external entity declaration"},
			},
		},
		{
			violationType:  ViolationLDAPInjection,
			severity:       SeverityMedium,
			recommendation: "escape LDAP filter metacharacters per RFC 4515 before query construction",
			patterns: []pattern{
				{"filter-conjunction", regexp.MustCompile(`\)\s*\(\s*[|&!]`), "filter clause conjunction injection"},
				{"wildcard-filter", regexp.MustCompile(`\*\s*\)\s*\(`), "wildcard filter clause injection"},
				{"null-dn", regexp.MustCompile(`(?i)\(\s*\|\s*\(\s*objectclass\s*=`), "objectClass enumeration filter"},
			},
		},
		{
			violationType:  ViolationXPathInjection,
			severity:       SeverityMedium,
			recommendation: "use parameterized XPath APIs and escape quotes in node tests",
			patterns: []pattern{
				{"quote-tautology", regexp.MustCompile(`(?i)'\s*or\s*'[^']*'\s*=\s*'`), "XPath boolean tautology"},
				{"node-wildcard", regexp.MustCompile(`//\*\s*\[`), "wildcard node predicate"},
				{"union-path", regexp.MustCompile(`(?i)\]\s*\|\s*//`), "path union extraction"},
			},
		},
		{
			violationType:  ViolationExpressionInjection,
			severity:       SeverityHigh,
			recommendation: "disable expression-language evaluation for user-controlled values",
			patterns: []pattern{
				{"el-expression", regexp.MustCompile(`#\{[^}]*\}`), "expression-language block"},
				{"spel-type-access", regexp.MustCompile(`(?i)\bT\s*\(\s*java`), "SpEL type reference to java classes"},
				{"ognl-expression", regexp.MustCompile(`%\{[^}]*\}`), "OGNL expression block"},
			},
		},
		{
			violationType:  ViolationCSVInjection,
			severity:       SeverityLow,
			recommendation: "prefix exported cells beginning with formula characters with a single quote",
			patterns: []pattern{
				{"formula-cell", regexp.MustCompile(`^\s*[=@+]\s*[\w(]`), "leading spreadsheet formula character"},
				{"known-formula", regexp.MustCompile(`(?i)^\s*=\s*(cmd|HYPERLINK|IMPORTXML|WEBSERVICE)\b`), "known exfiltration formula"},
			},
		},
	}
}

// detectUnicodeAbuse scans for homograph, bidi, and zero-width abuse.
// Rune-level checks rather than regexes: the classes involved are easier
// to state against unicode tables than pattern syntax.
func detectUnicodeAbuse(input string) []Violation {
	var violations []Violation
	var hasBidi, hasZeroWidth bool
	var hasLatin, hasConfusable bool

	for _, r := range input {
		switch r {
		case '\u202a', '\u202b', '\u202c', '\u202d', '\u202e', '\u2066', '\u2067', '\u2068', '\u2069':
			hasBidi = true
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			hasZeroWidth = true
		}
		if unicode.Is(unicode.Latin, r) {
			hasLatin = true
		}
		if unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Greek, r) {
			hasConfusable = true
		}
	}

	if hasBidi {
		violations = append(violations, Violation{
			Type:           ViolationUnicodeAbuse,
			PatternID:      "bidi-override",
			Severity:       SeverityMedium,
			Description:    "bidirectional text override characters present",
			Recommendation: "strip directional formatting characters from identifiers",
		})
	}
	if hasZeroWidth {
		violations = append(violations, Violation{
			Type:           ViolationUnicodeAbuse,
			PatternID:      "zero-width",
			Severity:       SeverityMedium,
			Description:    "zero-width characters present",
			Recommendation: "strip zero-width characters from identifiers",
		})
	}
	if hasLatin && hasConfusable {
		violations = append(violations, Violation{
			Type:           ViolationUnicodeAbuse,
			PatternID:      "mixed-script",
			Severity:       SeverityMedium,
			Description:    "mixed Latin and confusable-script characters",
			Recommendation: "restrict identifiers to a single script",
		})
	}
	return violations
}

var (
	sanitizeTraversal    = regexp.MustCompile(`\.\.[/\\]`)
	sanitizeSubstitution = regexp.MustCompile("\\$\\([^)]*\\)|`[^`]*`")
	sanitizeShellChars   = strings.NewReplacer(
		";", "", "|", "", "&", "", "<", "&lt;", ">", "&gt;",
	)
)

// Sanitize produces a best-effort stripped/escaped rendering of input for
// display and logging. It is a fallback for presentation only and must
// never be treated as a security boundary for re-execution.
func Sanitize(input string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '\x00':
			return -1
		case '\u202a', '\u202b', '\u202c', '\u202d', '\u202e',
			'\u2066', '\u2067', '\u2068', '\u2069',
			'\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		return r
	}, input)

	out = sanitizeTraversal.ReplaceAllString(out, "")
	out = sanitizeSubstitution.ReplaceAllString(out, "")
	out = sanitizeShellChars.Replace(out)
	return out
}
