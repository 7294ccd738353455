package moderation

import (
	"regexp"
	"strings"
)

// crisisPhrases are matched as substrings after lowercasing. Matches are
// treated as critical regardless of the session's moderation level.
var crisisPhrases = []string{
	"kill myself",
	"end my life",
	"end it all",
	"want to die",
	"better off dead",
	"no reason to live",
	"suicide",
	"hurt myself",
	"harm myself",
	"cut myself",
	"take all the pills",
	"不想活",
	"自杀",
}

var crisisPatternSources = []string{
	`(?i)\bi\s+(?:want|wish|plan|am going)\s+to\s+(?:die|disappear|not wake up)\b`,
	`(?i)\bgoodbye\s+(?:forever|everyone|cruel world)\b`,
	`(?i)\bnobody\s+(?:would|will)\s+(?:miss|care about)\s+me\b`,
	`(?i)\bcan'?t\s+(?:do this|go on|take it)\s+anymore\b`,
	`(?i)\btonight\s+is\s+(?:the|my)\s+last\b`,
}

// CrisisDetector is the synchronous tier-one check. It is pure and local:
// no network, no external dependency, nothing that can make the
// safety-critical path unavailable.
type CrisisDetector struct {
	phrases  []string
	patterns []*regexp.Regexp
}

func NewCrisisDetector() (*CrisisDetector, error) {
	patterns := make([]*regexp.Regexp, 0, len(crisisPatternSources))
	for _, src := range crisisPatternSources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	return &CrisisDetector{phrases: crisisPhrases, patterns: patterns}, nil
}

// Match reports whether the content contains crisis language, and which
// phrase or pattern fired.
func (d *CrisisDetector) Match(content string) (string, bool) {
	lowered := strings.ToLower(content)
	for _, phrase := range d.phrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	for _, re := range d.patterns {
		if match := re.FindString(content); match != "" {
			return match, true
		}
	}
	return "", false
}
