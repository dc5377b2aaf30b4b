package memory

import "regexp"

const minCaptureChars = 80
const minEntityCaptureChars = 300
const minEntityPatternMatches = 2

// strongCapturePatterns are content shapes worth storing on their own
// (spec §4.8 capture filter): preferences, decisions, learnings, gotchas,
// architecture notes, warnings, configuration rules.
var strongCapturePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(prefer|always|never)\b.{0,40}\b(use|do|avoid|write)\b`),
	regexp.MustCompile(`(?i)\bdecided?\b.{0,40}\b(because|since|to)\b`),
	regexp.MustCompile(`(?i)\blearn(ed|ing)\b`),
	regexp.MustCompile(`(?i)\bgotcha\b|\bwatch out\b|\bbe careful\b`),
	regexp.MustCompile(`(?i)\barchitecture\b|\bdesign\b.{0,20}\bdecision\b`),
	regexp.MustCompile(`(?i)\bwarning\b|\bdeprecat(ed|ion)\b`),
	regexp.MustCompile(`(?i)\bconfig(uration)?\b.{0,20}\b(rule|must|required)\b`),
}

// entityPatterns are weaker signals: file paths, identifiers, version
// strings. Content below the strong-capture bar still qualifies if it's
// long and hits at least two of these.
var entityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[\w./-]+\.(go|ts|tsx|py|rs|md|json|yaml|toml)\b`),
	regexp.MustCompile(`\bv?\d+\.\d+(\.\d+)?\b`),
	regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]*(\.[A-Z][a-zA-Z0-9]*)+\b`),
	regexp.MustCompile(`\b[a-z_]+\([^)]*\)`),
}

// systemMessagePatterns exclude wrapper telemetry from ever being
// considered stored-worthy, regardless of length or entity density.
var systemMessagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwatchdog\b`),
	regexp.MustCompile(`(?i)\bheartbeat\b`),
	regexp.MustCompile(`^\s*(OUTCOME|DECISION|COMPACTION):`),
	regexp.MustCompile(`(?i)\[injected context\]`),
}

// IsStoredWorthy reports whether content passes the wrapper capture filter
// (spec §4.8). It is a pure classification function; callers decide
// whether to act on it by calling Store.
func IsStoredWorthy(content string) bool {
	if len(content) < minCaptureChars {
		return false
	}
	for _, p := range systemMessagePatterns {
		if p.MatchString(content) {
			return false
		}
	}
	for _, p := range strongCapturePatterns {
		if p.MatchString(content) {
			return true
		}
	}
	if len(content) < minEntityCaptureChars {
		return false
	}
	matches := 0
	for _, p := range entityPatterns {
		if p.MatchString(content) {
			matches++
		}
	}
	return matches >= minEntityPatternMatches
}
