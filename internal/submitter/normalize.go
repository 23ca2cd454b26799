package submitter

import "strings"

// Normalize canonicalizes a repository locator for the uniqueness check:
// strip a trailing slash, strip a trailing ".git" suffix, lowercase the host
// (a locator with no "scheme://" prefix is lowercased whole). Pure, in the
// style of the teacher's internal/common/url_utils.go helpers.
func Normalize(locator string) string {
	s := strings.TrimSpace(locator)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	scheme, rest, ok := splitScheme(s)
	if !ok {
		return strings.ToLower(s)
	}

	host, path := splitHostPath(rest)
	return scheme + "://" + strings.ToLower(host) + path
}

func splitScheme(s string) (scheme, rest string, ok bool) {
	idx := strings.Index(s, "://")
	if idx < 0 {
		return "", s, false
	}
	return s[:idx], s[idx+3:], true
}

func splitHostPath(rest string) (host, path string) {
	idx := strings.Index(rest, "/")
	if idx < 0 {
		return rest, ""
	}
	return rest[:idx], rest[idx:]
}
