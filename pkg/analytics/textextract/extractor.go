package textextract

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// IOCType is the kind of observable extracted from text.
type IOCType string

const (
	IOCTypeIP       IOCType = "ip"
	IOCTypeDomain   IOCType = "domain"
	IOCTypeURL      IOCType = "url"
	IOCTypeEmail    IOCType = "email"
	IOCTypeHash     IOCType = "hash"
	IOCTypeCVE      IOCType = "cve"
	IOCTypeFilePath IOCType = "file-path"
)

// ExtractedIOC is a typed observable found in unstructured text, with the
// surrounding context window and character offsets in the source.
type ExtractedIOC struct {
	Type       IOCType `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// Entity is a named entity recognized in text, such as a threat actor or a
// malware family.
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// contextWindow is the number of characters captured on each side of a match.
const contextWindow = 50

// Per-type extraction confidence. Fixed values, not computed.
var iocConfidence = map[IOCType]float64{
	IOCTypeIP:       0.90,
	IOCTypeDomain:   0.85,
	IOCTypeURL:      0.90,
	IOCTypeEmail:    0.85,
	IOCTypeHash:     0.95,
	IOCTypeCVE:      0.95,
	IOCTypeFilePath: 0.70,
}

var (
	ipPattern     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)*\.(?:com|net|org|io|info|biz|ru|cn|su|xyz|top|onion)\b`)
	urlPattern    = regexp.MustCompile(`https?://[^\s"'<>]+`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// MD5-shaped only; longer digests are a different animal.
	hashPattern    = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	cvePattern     = regexp.MustCompile(`\bCVE-\d{4}-\d{4,7}\b`)
	winPathPattern = regexp.MustCompile(`[A-Za-z]:\\(?:[\w.-]+\\)*[\w.-]+`)
	// Group 1 is the path; the leading boundary keeps URL components out.
	nixPathPattern = regexp.MustCompile(`(?:^|[\s"'])(/(?:[\w.-]+/)+[\w.-]+)`)

	aptPattern   = regexp.MustCompile(`(?i)\bAPT[-\s]?\d{1,3}\b`)
	mitrePattern = regexp.MustCompile(`\bT\d{4}(?:\.\d{3})?\b`)
)

// knownActors is a short fixed alias list of threat actor groups.
var knownActors = []string{
	"lazarus",
	"fancy bear",
	"cozy bear",
	"equation group",
	"carbanak",
	"fin7",
	"sandworm",
	"turla",
}

// knownMalware is a short fixed alias list of malware families and tooling.
var knownMalware = []string{
	"emotet",
	"trickbot",
	"qakbot",
	"ryuk",
	"wannacry",
	"cobalt strike",
	"mimikatz",
}

// Extractor performs pattern-based extraction of indicators and entities
// from unstructured text, plus sentiment, summarization, and tagging
// utilities. It is stateless; all methods are pure functions of their input.
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates a text extraction engine.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With().Str("component", "text_extractor").Logger(),
	}
}

// ExtractIOCs runs independent regular-expression scans over the text and
// returns every observable found, each with its fixed per-type confidence
// and a context window of ±50 characters.
func (e *Extractor) ExtractIOCs(text string) []ExtractedIOC {
	var iocs []ExtractedIOC

	scan := func(iocType IOCType, pattern *regexp.Regexp) {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			iocs = append(iocs, newIOC(text, iocType, loc[0], loc[1]))
		}
	}

	scan(IOCTypeIP, ipPattern)
	scan(IOCTypeDomain, domainPattern)
	scan(IOCTypeURL, urlPattern)
	scan(IOCTypeEmail, emailPattern)
	scan(IOCTypeHash, hashPattern)
	scan(IOCTypeCVE, cvePattern)
	scan(IOCTypeFilePath, winPathPattern)

	for _, loc := range nixPathPattern.FindAllStringSubmatchIndex(text, -1) {
		iocs = append(iocs, newIOC(text, IOCTypeFilePath, loc[2], loc[3]))
	}

	e.logger.Debug().Int("count", len(iocs)).Msg("IOC extraction completed")
	return iocs
}

func newIOC(text string, iocType IOCType, start, end int) ExtractedIOC {
	ctxStart := start - contextWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + contextWindow
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	return ExtractedIOC{
		Type:       iocType,
		Value:      text[start:end],
		Confidence: iocConfidence[iocType],
		Context:    text[ctxStart:ctxEnd],
		Start:      start,
		End:        end,
	}
}

// ExtractEntities scans for threat actor naming patterns (APT group numbers
// and known aliases) and known malware family names.
func (e *Extractor) ExtractEntities(text string) []Entity {
	var entities []Entity
	seen := make(map[string]bool)

	add := func(entityType, value string, confidence float64) {
		k := entityType + ":" + strings.ToLower(value)
		if seen[k] {
			return
		}
		seen[k] = true
		entities = append(entities, Entity{Type: entityType, Value: value, Confidence: confidence})
	}

	for _, match := range aptPattern.FindAllString(text, -1) {
		add("threat-actor", match, 0.85)
	}

	lower := strings.ToLower(text)
	for _, actor := range knownActors {
		if strings.Contains(lower, actor) {
			add("threat-actor", actor, 0.80)
		}
	}
	for _, family := range knownMalware {
		if strings.Contains(lower, family) {
			add("malware", family, 0.80)
		}
	}

	return entities
}
