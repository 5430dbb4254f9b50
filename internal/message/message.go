// Package message implements the commit-message grammar the engine relies
// on: subject/body splitting and footer-paragraph parsing, reading and
// rewriting. Grounded on the footer handling the teacher inlines into
// bl/internal/state.go (commitIDRegex, Subject/Body helpers), generalized
// into the ordered, round-trippable form the reconciler needs.
package message

import (
	"regexp"
	"strings"
)

// Footer is one "key: value" line, order-preserving.
type Footer struct {
	Key   string
	Value string
}

var footerKeyRe = regexp.MustCompile(`^[A-Za-z0-9-]+:( |$)`)

// Subject returns the first paragraph of msg with interior newlines
// collapsed to single spaces.
func Subject(msg string) string {
	subj, _ := SubjectBody(msg)
	return subj
}

// SubjectBody splits msg into its subject (first paragraph, newlines
// collapsed to spaces) and its body (the remainder, minus a trailing
// newline). Body is empty if msg has only one paragraph.
func SubjectBody(msg string) (string, string) {
	msg = strings.TrimRight(msg, "\n")
	paras := splitParagraphs(msg)
	if len(paras) == 0 {
		return "", ""
	}
	subject := strings.Join(strings.Fields(strings.Join(strings.Split(paras[0], "\n"), " ")), " ")
	if len(paras) == 1 {
		return subject, ""
	}
	body := strings.Join(paras[1:], "\n\n")
	return subject, body
}

// splitParagraphs splits msg on blank lines, preserving non-empty paragraphs
// in order.
func splitParagraphs(msg string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(msg, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return paras
}

// footerParagraph returns the trailing paragraph of msg if every one of its
// lines is a well-formed "key: value" footer line, and it is not the sole
// (subject) paragraph. Returns ok=false otherwise — including the case of a
// lone trailing URL line, which never matches the key grammar.
func footerParagraph(msg string) (lines []string, ok bool) {
	paras := splitParagraphs(strings.TrimRight(msg, "\n"))
	if len(paras) < 2 {
		return nil, false
	}
	last := strings.Split(paras[len(paras)-1], "\n")
	for _, line := range last {
		if !footerKeyRe.MatchString(line) {
			return nil, false
		}
	}
	return last, true
}

// Footers returns the key/value footer lines trailing msg as a map (no
// order; see OrderedFooters for that). Later duplicate keys replace earlier
// ones, so the map holds each key's last value.
func Footers(msg string) map[string]string {
	lines, ok := footerParagraph(msg)
	out := map[string]string{}
	if !ok {
		return out
	}
	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		out[key] = val
	}
	return out
}

// OrderedFooters is like Footers but preserves insertion order with later
// duplicates overwriting the value in place.
func OrderedFooters(msg string) []Footer {
	lines, ok := footerParagraph(msg)
	if !ok {
		return nil
	}
	var out []Footer
	seen := map[string]int{}
	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if i, ok := seen[key]; ok {
			out[i].Value = val
			continue
		}
		seen[key] = len(out)
		out = append(out, Footer{Key: key, Value: val})
	}
	return out
}

// TrimFooters removes the trailing footer paragraph (and the blank line
// that precedes it), leaving subject and body untouched.
func TrimFooters(msg string) string {
	lines, ok := footerParagraph(msg)
	if !ok {
		return msg
	}
	trimmed := strings.TrimRight(msg, "\n")
	paras := splitParagraphs(trimmed)
	kept := paras[:len(paras)-1]
	_ = lines
	return strings.Join(kept, "\n\n")
}

// AddFooters removes any existing trailing footer paragraph, ensures a
// blank line, then appends the given footers in order. Existing footers not
// present in extra are preserved ahead of the new ones; a footer key present
// in both keeps its existing position and takes the new value.
func AddFooters(msg string, extra []Footer) string {
	existing := OrderedFooters(msg)
	base := TrimFooters(msg)

	merged := map[string]string{}
	var order []string
	for _, f := range existing {
		if _, ok := merged[f.Key]; !ok {
			order = append(order, f.Key)
		}
		merged[f.Key] = f.Value
	}
	for _, f := range extra {
		if _, ok := merged[f.Key]; !ok {
			order = append(order, f.Key)
		}
		merged[f.Key] = f.Value
	}

	if len(order) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n")
	for _, k := range order {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(merged[k])
		b.WriteString("\n")
	}
	return b.String()
}
