package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleMatches(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		req  Request
		want bool
	}{
		{
			name: "empty rule matches everything",
			rule: Rule{Chain: "default"},
			req:  Request{Prompt: "hello", Capability: "chat"},
			want: true,
		},
		{
			name: "capability match",
			rule: Rule{Capability: "code", Chain: "code-chain"},
			req:  Request{Capability: "code"},
			want: true,
		},
		{
			name: "capability mismatch",
			rule: Rule{Capability: "code", Chain: "code-chain"},
			req:  Request{Capability: "chat"},
			want: false,
		},
		{
			name: "provider hint match",
			rule: Rule{Provider: "anthropic", Chain: "anthropic-chain"},
			req:  Request{Provider: "anthropic"},
			want: true,
		},
		{
			name: "provider hint mismatch",
			rule: Rule{Provider: "anthropic", Chain: "anthropic-chain"},
			req:  Request{Provider: "openai"},
			want: false,
		},
		{
			name: "prompt length within bounds",
			rule: Rule{MinPromptLen: 2, MaxPromptLen: 10, Chain: "short"},
			req:  Request{Prompt: "hello"},
			want: true,
		},
		{
			name: "prompt too short",
			rule: Rule{MinPromptLen: 10, Chain: "long"},
			req:  Request{Prompt: "hi"},
			want: false,
		},
		{
			name: "prompt too long",
			rule: Rule{MaxPromptLen: 3, Chain: "short"},
			req:  Request{Prompt: "hello"},
			want: false,
		},
		{
			name: "prompt length counts runes",
			rule: Rule{MaxPromptLen: 4, Chain: "short"},
			req:  Request{Prompt: "日本語で"},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(tt.req))
		})
	}
}

func TestPolicySelect(t *testing.T) {
	policy := Policy{
		Rules: []Rule{
			{Provider: "local", Chain: "local-chain"},
			{Capability: "code", Chain: "code-chain"},
			{Capability: "chat", MaxPromptLen: 100, Chain: "fast-chain"},
			{Capability: "chat", Chain: "chat-chain"},
		},
		DefaultChain: "default-chain",
	}

	t.Run("first matching rule wins", func(t *testing.T) {
		// The provider hint rule precedes the capability rules.
		got := policy.Select(Request{Capability: "code", Provider: "local"})
		assert.Equal(t, "local-chain", got)
	})

	t.Run("length bound steers short prompts", func(t *testing.T) {
		got := policy.Select(Request{Capability: "chat", Prompt: "hi"})
		assert.Equal(t, "fast-chain", got)
	})

	t.Run("falls through length bound", func(t *testing.T) {
		long := make([]byte, 200)
		for i := range long {
			long[i] = 'a'
		}
		got := policy.Select(Request{Capability: "chat", Prompt: string(long)})
		assert.Equal(t, "chat-chain", got)
	})

	t.Run("no rule matches returns default", func(t *testing.T) {
		got := policy.Select(Request{Capability: "embed"})
		assert.Equal(t, "default-chain", got)
	})

	t.Run("empty rule list returns default", func(t *testing.T) {
		p := Policy{DefaultChain: "only"}
		assert.Equal(t, "only", p.Select(Request{Capability: "chat"}))
	})
}
