package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+`)

// StripBlock removes every <tag>...</tag> section from s. An opening tag
// without a closing tag removes everything after it.
func StripBlock(s, tag string) string {
	open := "<" + tag + ">"
	closing := "</" + tag + ">"

	var b strings.Builder
	for {
		start := strings.Index(s, open)
		if start < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:start])
		rest := s[start+len(open):]
		end := strings.Index(rest, closing)
		if end < 0 {
			break
		}
		s = rest[end+len(closing):]
	}
	return b.String()
}

// CleanReply strips reasoning blocks, surrounding whitespace and quotes from
// a model reply.
func CleanReply(reply string) string {
	s := strings.TrimSpace(StripBlock(reply, "think"))
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}

// FindLastSignal returns the candidate whose last whole-word occurrence in
// reply starts latest. Matching is case-insensitive. The second return value
// is false when no candidate occurs or when two candidates tie.
func FindLastSignal(reply string, candidates ...string) (string, bool) {
	text := strings.ToLower(CleanReply(reply))

	best := ""
	bestPos := -1
	tie := false
	for _, candidate := range candidates {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(candidate)) + `\b`)
		matches := pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		pos := matches[len(matches)-1][0]
		switch {
		case pos > bestPos:
			best, bestPos, tie = candidate, pos, false
		case pos == bestPos:
			tie = true
		}
	}

	if bestPos < 0 || tie {
		return "", false
	}
	return best, true
}

// LastNumber returns the last integer that appears in reply.
func LastNumber(reply string) (int, bool) {
	matches := numberPattern.FindAllString(CleanReply(reply), -1)
	if len(matches) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
