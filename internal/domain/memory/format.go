// Package memory renders retrieved hits into text blocks for a model prompt.
package memory

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kailas-cloud/skills-handbook/internal/domain/search/result"
)

// Payload keys with special meaning.
const (
	ToolKey      = "tool"
	ReasoningKey = "reasoning"
)

// ContentKeys lists the record fields tried, in order, for the main line of a hit.
var ContentKeys = []string{"example", "text", "description"}

// Format renders hits as "prefix + numbered lines + suffix".
// An empty hit list renders as "" so no empty wrapped section is ever produced.
// Hits keep the order they were received in.
func Format(hits []result.Result, prefix, suffix string) string {
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i := range hits {
		writeLine(&b, i+1, hits[i].Payload())
	}
	b.WriteString(suffix)
	return b.String()
}

func writeLine(b *strings.Builder, n int, p result.Payload) {
	b.WriteString(strconv.Itoa(n))
	b.WriteString(". ")

	if p.IsText() {
		b.WriteString(p.Text())
		b.WriteByte('\n')
		return
	}

	if tool, ok := p.Render(ToolKey); ok {
		b.WriteString("[Tool: ")
		b.WriteString(tool)
		b.WriteString("] ")
	}
	b.WriteString(content(p))
	b.WriteByte('\n')

	if reasoning, ok := p.Render(ReasoningKey); ok {
		b.WriteString("   Reasoning: ")
		b.WriteString(reasoning)
		b.WriteByte('\n')
	}
}

// content picks the first present content field, falling back to the raw record.
func content(p result.Payload) string {
	for _, key := range ContentKeys {
		if v, ok := p.Render(key); ok {
			return v
		}
	}
	var raw strings.Builder
	enc := json.NewEncoder(&raw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return ""
	}
	return strings.TrimRight(raw.String(), "\n")
}
