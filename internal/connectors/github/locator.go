package github

import (
	"strings"

	"github.com/ternarybob/docugen/internal/errs"
)

// ParseLocator extracts owner/repo from any of the locator forms the
// Submitter accepts (spec.md §4.2 normalize()): bare "owner/repo",
// "github.com/owner/repo", or a full https URL, with an optional ".git"
// suffix and trailing slash already stripped by normalization.
func ParseLocator(locator string) (owner, repo string, err error) {
	s := locator
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errs.New(errs.KindLocatorInvalid, "locator is not a github owner/repo: "+locator)
	}
	return parts[0], parts[1], nil
}
