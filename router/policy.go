package router

// Rule maps matching requests onto a chain name. Zero-valued match fields are
// wildcards; a rule with all match fields zero matches everything. Prompt
// length bounds are measured in runes of the raw prompt.
type Rule struct {
	Capability   string // matches the request capability exactly
	Provider     string // matches the request's explicit provider hint
	MinPromptLen int    // inclusive lower bound, 0 = unbounded
	MaxPromptLen int    // inclusive upper bound, 0 = unbounded
	Chain        string // chain selected when the rule matches
}

// Matches reports whether the rule applies to the request.
func (r Rule) Matches(req Request) bool {
	if r.Capability != "" && r.Capability != req.Capability {
		return false
	}
	if r.Provider != "" && r.Provider != req.Provider {
		return false
	}
	promptLen := len([]rune(req.Prompt))
	if r.MinPromptLen > 0 && promptLen < r.MinPromptLen {
		return false
	}
	if r.MaxPromptLen > 0 && promptLen > r.MaxPromptLen {
		return false
	}
	return true
}

// Policy is the data-driven routing table mapping request attributes onto a
// configured chain name: an ordered rule list plus a default. Adding
// providers or policies is configuration only, never code.
type Policy struct {
	Rules        []Rule
	DefaultChain string
}

// Select returns the chain name for the request. It is a pure function of
// the request attributes: the first matching rule wins, otherwise the
// default chain is returned.
func (p Policy) Select(req Request) string {
	for _, rule := range p.Rules {
		if rule.Matches(req) {
			return rule.Chain
		}
	}
	return p.DefaultChain
}
