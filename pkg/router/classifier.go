package router

import (
	"regexp"
	"strings"
)

// Path is the route a message takes through the engine.
type Path string

const (
	PathMeta      Path = "meta"
	PathTool      Path = "tool"
	PathHybrid    Path = "hybrid"
	PathRetrieval Path = "retrieval"
	PathDirect    Path = "direct"
)

// Classification is the outcome of rule-based message triage. Detectors
// lists which tool patterns matched; MultiToolHint is advisory and only
// logged.
type Classification struct {
	Meta          bool
	ToolRelevant  bool
	Detectors     []string
	MultiToolHint bool
}

// Classifier decides how a message should be routed. Implementations
// must be side-effect free.
type Classifier interface {
	Classify(content string) Classification
}

// HeuristicClassifier matches messages against fixed keyword and pattern
// detectors. Cheap and deterministic, at the cost of missing indirect
// phrasings; those still get a reasonable answer on the direct path.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier { return &HeuristicClassifier{} }

var (
	metaPattern = regexp.MustCompile(`(?i)\b(what +(tools|can you do)|which +tools|list +(your +)?tools|your +(tools|capabilities|abilities)|what +are +you +able +to)\b`)

	arithmeticPattern = regexp.MustCompile(`(?i)(\bcalculat\w*|\bcompute\b|\bsum +of\b|\d+(\.\d+)?\s*[-+*/%^x×]\s*\d+(\.\d+)?)`)
	weatherPattern    = regexp.MustCompile(`(?i)\b(weather|temperature|forecast|raining|sunny|how (hot|cold))\b`)
	timePattern       = regexp.MustCompile(`(?i)\b(what time|current (time|date)|today'?s date|what (day|date) is)\b`)
	searchPattern     = regexp.MustCompile(`(?i)\b(search( the web)?( for)?|look up|google|latest news|find out about)\b`)
	identifierPattern = regexp.MustCompile(`(?i)\b(uuid|guid|unique (id|identifier)|random (id|identifier)|generate\w* +(an? +)?id)\b`)

	conjunctionPattern = regexp.MustCompile(`(?i)\b(and +(also|then)?|also|then|after that|plus)\b`)
	countPattern       = regexp.MustCompile(`(?i)(\b(both|two things|three things|first\b.*\bsecond)\b|1\).*2\))`)
)

// toolDetectors are evaluated independently; any single match makes the
// message tool-relevant.
var toolDetectors = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"arithmetic", arithmeticPattern},
	{"weather", weatherPattern},
	{"time", timePattern},
	{"search", searchPattern},
	{"identifier", identifierPattern},
}

func (c *HeuristicClassifier) Classify(content string) Classification {
	content = strings.TrimSpace(content)
	if content == "" {
		return Classification{}
	}

	if metaPattern.MatchString(content) {
		return Classification{Meta: true}
	}

	var result Classification
	for _, d := range toolDetectors {
		if d.pattern.MatchString(content) {
			result.ToolRelevant = true
			result.Detectors = append(result.Detectors, d.name)
		}
	}

	if result.ToolRelevant {
		multiByConjunction := len(result.Detectors) >= 2 && conjunctionPattern.MatchString(content)
		result.MultiToolHint = multiByConjunction || countPattern.MatchString(content)
	}

	return result
}
