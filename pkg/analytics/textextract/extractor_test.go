package textextract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return NewExtractor(zerolog.Nop())
}

func TestExtractIOCsBasic(t *testing.T) {
	e := newTestExtractor()

	iocs := e.ExtractIOCs("Contact 8.8.8.8 about malware.com")
	require.Len(t, iocs, 2)

	byType := map[IOCType]ExtractedIOC{}
	for _, ioc := range iocs {
		byType[ioc.Type] = ioc
	}

	ip, ok := byType[IOCTypeIP]
	require.True(t, ok)
	assert.Equal(t, "8.8.8.8", ip.Value)
	assert.Equal(t, 0.90, ip.Confidence)

	domain, ok := byType[IOCTypeDomain]
	require.True(t, ok)
	assert.Equal(t, "malware.com", domain.Value)
	assert.Equal(t, 0.85, domain.Confidence)
}

func TestExtractIOCsHashAndCVE(t *testing.T) {
	e := newTestExtractor()

	text := "Dropped payload d41d8cd98f00b204e9800998ecf8427e exploits CVE-2024-21762."
	iocs := e.ExtractIOCs(text)

	var hash, cve *ExtractedIOC
	for i := range iocs {
		switch iocs[i].Type {
		case IOCTypeHash:
			hash = &iocs[i]
		case IOCTypeCVE:
			cve = &iocs[i]
		}
	}

	require.NotNil(t, hash)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", hash.Value)
	assert.Equal(t, 0.95, hash.Confidence)

	require.NotNil(t, cve)
	assert.Equal(t, "CVE-2024-21762", cve.Value)
	assert.Equal(t, 0.95, cve.Confidence)
}

func TestExtractIOCsOffsetsAndContext(t *testing.T) {
	e := newTestExtractor()

	prefix := strings.Repeat("x", 80) + " "
	text := prefix + "1.2.3.4 observed"
	iocs := e.ExtractIOCs(text)

	var ip *ExtractedIOC
	for i := range iocs {
		if iocs[i].Type == IOCTypeIP {
			ip = &iocs[i]
		}
	}
	require.NotNil(t, ip)

	assert.Equal(t, "1.2.3.4", text[ip.Start:ip.End])
	// Context is capped at 50 characters each side.
	assert.Equal(t, text[ip.Start-50:ip.End+9], ip.Context)
}

func TestExtractIOCsPaths(t *testing.T) {
	e := newTestExtractor()

	text := `Persistence via C:\Windows\Temp\svc.exe and /usr/local/bin/dropper`
	iocs := e.ExtractIOCs(text)

	var paths []string
	for _, ioc := range iocs {
		if ioc.Type == IOCTypeFilePath {
			paths = append(paths, ioc.Value)
			assert.Equal(t, 0.70, ioc.Confidence)
		}
	}
	assert.Contains(t, paths, `C:\Windows\Temp\svc.exe`)
	assert.Contains(t, paths, "/usr/local/bin/dropper")
}

func TestExtractEntities(t *testing.T) {
	e := newTestExtractor()

	text := "Attribution points at APT29, also known as Cozy Bear, deploying Cobalt Strike."
	entities := e.ExtractEntities(text)

	var actors, malware []string
	for _, ent := range entities {
		switch ent.Type {
		case "threat-actor":
			actors = append(actors, strings.ToLower(ent.Value))
		case "malware":
			malware = append(malware, ent.Value)
		}
	}

	assert.Contains(t, actors, "apt29")
	assert.Contains(t, actors, "cozy bear")
	assert.Contains(t, malware, "cobalt strike")
}

func TestAnalyzeSentimentThresholds(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name        string
		text        string
		sentiment   string
		threatLevel string
	}{
		{"no hits", "Routine weekly report with nothing to note", "neutral", "low"},
		{"one hit", "One attack reported", "neutral", "low"},
		{"two hits", "An attack and a breach occurred", "mildly-negative", "medium"},
		{"three hits", "attack breach exploit", "mildly-negative", "medium"},
		{"four hits", "attack breach exploit ransomware", "strongly-negative", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.AnalyzeSentiment(tt.text)
			assert.Equal(t, tt.sentiment, got.Sentiment)
			assert.Equal(t, tt.threatLevel, got.ThreatLevel)
		})
	}
}

func TestSummarizeShortTextUnmodified(t *testing.T) {
	e := newTestExtractor()

	text := "First sentence. Second sentence. Third sentence."
	assert.Equal(t, text, e.Summarize(text, 0))
}

func TestSummarizePicksHighScoringSentences(t *testing.T) {
	e := newTestExtractor()

	text := "Filler about the weather today. " +
		"A critical ransomware attack hit the network. " +
		"Lunch options were discussed at length by the team. " +
		"The breach exposed a known vulnerability. " +
		"Someone watered the office plants."

	summary := e.Summarize(text, 0)

	assert.Contains(t, summary, "critical ransomware attack")
	assert.Contains(t, summary, "breach exposed a known vulnerability")
	assert.NotContains(t, summary, "office plants")
}

func TestSummarizeRespectsMaxLength(t *testing.T) {
	e := newTestExtractor()

	text := "attack one. attack two. attack three. attack four. attack five."
	summary := e.Summarize(text, 20)
	assert.LessOrEqual(t, len(summary), 20)
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	e := newTestExtractor()

	// Multi-byte runes throughout, so a naive byte cut could land inside a
	// character at almost any limit.
	text := "Attaque réseau détectée à Genève. Rapport rédigé en août. " +
		"Réponse coordonnée très tôt. Clôture prévue déjà."

	for max := 1; max <= 40; max++ {
		got := e.Summarize(text, max)
		assert.LessOrEqual(t, len(got), max)
		assert.True(t, utf8.ValidString(got), "maxLength %d produced invalid UTF-8: %q", max, got)
	}
}

func TestAutoTagMitreTechniques(t *testing.T) {
	e := newTestExtractor()

	tags := e.AutoTag("Phishing via T1566.001 observed", nil)

	var mitre []string
	for _, tag := range tags {
		if strings.HasPrefix(tag, "T1") {
			mitre = append(mitre, tag)
		}
	}
	assert.Equal(t, []string{"T1566.001"}, mitre)
}

func TestAutoTagUnionsAndDeduplicates(t *testing.T) {
	e := newTestExtractor()

	content := "Emotet beacons to 10.0.0.1 using technique T1071"
	tags := e.AutoTag(content, []string{"urgent", "ip"})

	// "ip" arrives both as an existing tag and from the IOC scan; "emotet"
	// is a lower-cased entity value, "T1071" a MITRE technique.
	assert.Contains(t, tags, "urgent")
	assert.Contains(t, tags, "ip")
	assert.Contains(t, tags, "emotet")
	assert.Contains(t, tags, "T1071")
	assert.Contains(t, tags, "threat:low")

	// No duplicates.
	seen := map[string]int{}
	for _, tag := range tags {
		seen[tag]++
	}
	for tag, n := range seen {
		assert.Equal(t, 1, n, "duplicate tag %q", tag)
	}
}
