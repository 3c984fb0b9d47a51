package graph

// AttackPatternMatch is the result of comparing a graph against one known
// attack pattern template.
type AttackPatternMatch struct {
	PatternName  string   `json:"pattern_name"`
	Description  string   `json:"description"`
	Severity     string   `json:"severity"`
	Confidence   float64  `json:"confidence"`
	MatchedNodes []string `json:"matched_nodes"`
}

// PatternTemplate describes the structural fingerprint of a known attack
// pattern: the node and edge types it is built from.
type PatternTemplate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	NodeTypes   []string `json:"node_types"`
	EdgeTypes   []string `json:"edge_types"`
}

// match scores how much of the template's structure is present in the graph.
// Node type coverage dominates; edge type coverage refines.
func (t PatternTemplate) match(g Graph) AttackPatternMatch {
	nodeTypes := make(map[string]bool)
	for _, n := range g.Nodes {
		nodeTypes[n.Type] = true
	}
	edgeTypes := make(map[string]bool)
	for _, e := range g.Edges {
		edgeTypes[e.Type] = true
	}

	nodeHits := 0
	for _, nt := range t.NodeTypes {
		if nodeTypes[nt] {
			nodeHits++
		}
	}
	edgeHits := 0
	for _, et := range t.EdgeTypes {
		if edgeTypes[et] {
			edgeHits++
		}
	}

	confidence := 0.0
	if len(t.NodeTypes) > 0 {
		confidence += 0.7 * float64(nodeHits) / float64(len(t.NodeTypes))
	}
	if len(t.EdgeTypes) > 0 {
		confidence += 0.3 * float64(edgeHits) / float64(len(t.EdgeTypes))
	}

	required := make(map[string]bool, len(t.NodeTypes))
	for _, nt := range t.NodeTypes {
		required[nt] = true
	}
	var matched []string
	for _, n := range g.Nodes {
		if required[n.Type] {
			matched = append(matched, n.ID)
		}
	}

	return AttackPatternMatch{
		PatternName:  t.Name,
		Description:  t.Description,
		Severity:     t.Severity,
		Confidence:   confidence,
		MatchedNodes: matched,
	}
}

// defaultPatternTemplates is the built-in attack pattern library.
func defaultPatternTemplates() []PatternTemplate {
	return []PatternTemplate{
		{
			Name:        "lateral-movement",
			Description: "Credential reuse across hosts within one session window",
			Severity:    "high",
			NodeTypes:   []string{"host", "credential", "session"},
			EdgeTypes:   []string{"authenticates-to", "moves-to"},
		},
		{
			Name:        "data-exfiltration",
			Description: "Staged file access followed by transfer to an external address",
			Severity:    "critical",
			NodeTypes:   []string{"host", "file", "external-address"},
			EdgeTypes:   []string{"reads", "uploads-to"},
		},
		{
			Name:        "command-and-control",
			Description: "Process beaconing to a registered domain on a fixed interval",
			Severity:    "high",
			NodeTypes:   []string{"host", "process", "domain"},
			EdgeTypes:   []string{"spawns", "beacons-to"},
		},
		{
			Name:        "privilege-escalation",
			Description: "User-driven process chain ending at a privileged service",
			Severity:    "high",
			NodeTypes:   []string{"user", "process", "service"},
			EdgeTypes:   []string{"executes", "escalates-to"},
		},
	}
}
