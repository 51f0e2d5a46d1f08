// Package template implements the Template Expander (spec §4.F): recursive
// token substitution over question/section/step text, driven by a lookup
// map built from the Dependent edge set (see internal/propagate).
//
// Two token shapes are supported:
//
//	{TOKEN}          - replaced by lookup[TOKEN]; empty if TOKEN is unknown
//	{TOKEN|default}  - replaced by lookup[TOKEN] if present, else "default"
//
// A default may itself contain nested tokens, which are expanded
// recursively before being substituted. {Q#} and {S#} are handled as a
// separate, non-recursive literal pass: they are always replaced by the
// answer's question/step instance number regardless of the lookup map.
package template

import (
	"strconv"
	"strings"
)

// Instances carries the {Q#}/{S#} literal substitution values for one
// Answer (spec §4.F).
type Instances struct {
	QuestionInstance uint16
	StepInstance     uint16
}

// Expand renders text against lookup (token -> value) and inst (the
// {Q#}/{S#} instance numbers), applying the typographic possessive fixups
// last.
func Expand(text string, lookup map[string]string, inst Instances) string {
	text = replaceInstanceMarkers(text, inst)
	text = expandTokens(text, lookup)
	return applyTypographicFixups(text)
}

func replaceInstanceMarkers(text string, inst Instances) string {
	text = strings.ReplaceAll(text, "{Q#}", strconv.Itoa(int(inst.QuestionInstance)))
	text = strings.ReplaceAll(text, "{S#}", strconv.Itoa(int(inst.StepInstance)))
	return text
}

// expandTokens walks text left to right, expanding every top-level
// {TOKEN} / {TOKEN|default} region. Nested braces inside a default are
// resolved by recursing into expandTokens on the default's own text before
// substitution, so a default's tokens see the same lookup map.
func expandTokens(text string, lookup map[string]string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		if text[i] != '{' {
			out.WriteByte(text[i])
			i++
			continue
		}
		end := matchingBrace(text, i)
		if end < 0 {
			// Unbalanced '{' with no matching '}': emit literally, spec
			// gives no substitution grammar for this case.
			out.WriteString(text[i:])
			break
		}
		inner := text[i+1 : end]
		token, defaultText, hasDefault := splitTokenDefault(inner)

		if value, ok := lookup[token]; ok {
			out.WriteString(value)
		} else if hasDefault {
			out.WriteString(expandTokens(defaultText, lookup))
		}
		// Unknown token without a default resolves to empty text: leaving
		// the raw "{TOKEN}" in respondent-facing copy would be worse than
		// dropping it silently.
		i = end + 1
	}
	return out.String()
}

// matchingBrace returns the index of the '}' matching the '{' at open,
// accounting for nested '{'/'}' pairs inside a default. Returns -1 if
// unbalanced.
func matchingBrace(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTokenDefault splits "TOKEN" or "TOKEN|default" (the content between
// a token's braces) on the first '|'.
func splitTokenDefault(inner string) (token, defaultText string, hasDefault bool) {
	idx := strings.IndexByte(inner, '|')
	if idx < 0 {
		return inner, "", false
	}
	return inner[:idx], inner[idx+1:], true
}

// applyTypographicFixups applies the three fixed possessive-apostrophe
// corrections spec §4.F specifies, in order, followed by the global
// s's -> s' collapse.
func applyTypographicFixups(text string) string {
	text = strings.ReplaceAll(text, " her's", " her")
	text = strings.ReplaceAll(text, " his's", " his")
	text = strings.ReplaceAll(text, " Your's", " Your")
	text = strings.ReplaceAll(text, "s's", "s'")
	return text
}
