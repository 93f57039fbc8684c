package render

import (
	"regexp"
	"sort"
	"strings"
)

var (
	categoryRe    = regexp.MustCompile(`(?i)\[\[category:([^\]|]+)\]\]`)
	rstCategoryRe = regexp.MustCompile(`(?m)^\.\.\s+category::\s*(\S.*?)\s*$`)
	redirectRe    = regexp.MustCompile(`(?i)^#redirect\s*\[\[([^\]|]+)\]\]`)
	rstRedirectRe = regexp.MustCompile(`(?i)^\.\.\s+redirect::\s*(\S.*?)\s*$`)
)

// ExtractCategories scans raw page source for category tags and returns the
// category names sorted alphabetically. Duplicate names are collapsed
// case-insensitively; the first-seen casing wins. The result is never nil so
// it serializes as an empty list, not null.
func ExtractCategories(source, format string) []string {
	var re *regexp.Regexp
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatRST:
		re = rstCategoryRe
	default:
		re = categoryRe
	}

	seen := make(map[string]string)
	for _, m := range re.FindAllStringSubmatch(source, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; !ok {
			seen[key] = name
		}
	}

	names := make([]string, 0, len(seen))
	for _, name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractRedirect reports whether the page is a redirect and, if so, the
// target title. Only the first non-blank line is considered: #REDIRECT
// [[Target]] (any case) for markdown and wikitext, the redirect directive
// for rst.
func ExtractRedirect(source, format string) (string, bool) {
	var line string
	for _, l := range strings.Split(source, "\n") {
		if strings.TrimSpace(l) != "" {
			line = strings.TrimSpace(l)
			break
		}
	}
	if line == "" {
		return "", false
	}

	re := redirectRe
	if strings.ToLower(strings.TrimSpace(format)) == FormatRST {
		re = rstRedirectRe
	}
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	target := strings.TrimSpace(m[1])
	if target == "" {
		return "", false
	}
	return target, true
}

// stripCategoryTags removes inline category tags from a body; the names are
// still recoverable from the original source via ExtractCategories.
func stripCategoryTags(s string) string {
	return categoryRe.ReplaceAllString(s, "")
}
