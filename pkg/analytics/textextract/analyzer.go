package textextract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// SentimentResult maps a negative-keyword count to a discrete sentiment and
// threat level.
type SentimentResult struct {
	Sentiment    string `json:"sentiment"`
	ThreatLevel  string `json:"threat_level"`
	NegativeHits int    `json:"negative_hits"`
}

// negativeKeywords is the fixed keyword list driving sentiment analysis and
// sentence scoring in the summarizer. The list and the hit thresholds are
// contract, not tuning knobs.
var negativeKeywords = []string{
	"attack",
	"breach",
	"compromise",
	"malicious",
	"threat",
	"exploit",
	"vulnerability",
	"ransomware",
	"malware",
	"critical",
}

// AnalyzeSentiment counts negative-keyword occurrences: 4 or more hits is
// strongly negative with a high threat level, 2 or 3 mildly negative with a
// medium level, anything less neutral and low.
func (e *Extractor) AnalyzeSentiment(text string) SentimentResult {
	lower := strings.ToLower(text)

	hits := 0
	for _, kw := range negativeKeywords {
		hits += strings.Count(lower, kw)
	}

	switch {
	case hits >= 4:
		return SentimentResult{Sentiment: "strongly-negative", ThreatLevel: "high", NegativeHits: hits}
	case hits >= 2:
		return SentimentResult{Sentiment: "mildly-negative", ThreatLevel: "medium", NegativeHits: hits}
	default:
		return SentimentResult{Sentiment: "neutral", ThreatLevel: "low", NegativeHits: hits}
	}
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

type scoredSentence struct {
	text  string
	score float64
}

// Summarize produces an extractive summary: sentences score +0.2 per
// negative-keyword hit plus +0.3 when they fall in the first 20% of the
// text, and the top three are concatenated in descending score order (not
// document order). Texts of three sentences or fewer are returned unmodified.
// When maxLength > 0 the result is truncated to that many characters.
func (e *Extractor) Summarize(text string, maxLength int) string {
	sentences := splitSentences(text)
	if len(sentences) <= 3 {
		return text
	}

	positionalCutoff := int(0.2 * float64(len(text)))

	scored := make([]scoredSentence, 0, len(sentences))
	offset := 0
	for _, s := range sentences {
		start := strings.Index(text[offset:], s)
		if start >= 0 {
			start += offset
			offset = start + len(s)
		} else {
			start = offset
		}

		score := 0.0
		lower := strings.ToLower(s)
		for _, kw := range negativeKeywords {
			score += 0.2 * float64(strings.Count(lower, kw))
		}
		if start < positionalCutoff {
			score += 0.3
		}

		scored = append(scored, scoredSentence{text: s, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	top := scored
	if len(top) > 3 {
		top = top[:3]
	}

	parts := make([]string, len(top))
	for i, s := range top {
		parts[i] = s.text
	}
	summary := strings.Join(parts, ". ") + "."

	if maxLength > 0 && len(summary) > maxLength {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}
	return summary
}

func splitSentences(text string) []string {
	raw := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AutoTag unions existing tags with extracted IOC type names, lower-cased
// entity values, MITRE ATT&CK technique IDs, and a threat-level tag derived
// from sentiment. The result preserves first-seen order and contains no
// duplicates.
func (e *Extractor) AutoTag(content string, existingTags []string) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, t := range existingTags {
		add(t)
	}

	for _, ioc := range e.ExtractIOCs(content) {
		add(string(ioc.Type))
	}

	for _, entity := range e.ExtractEntities(content) {
		add(strings.ToLower(entity.Value))
	}

	for _, technique := range mitrePattern.FindAllString(content, -1) {
		add(technique)
	}

	add("threat:" + e.AnalyzeSentiment(content).ThreatLevel)

	return tags
}
