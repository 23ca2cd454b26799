package github

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConnectorWithoutTokenIsUnauthenticated(t *testing.T) {
	c := NewConnector(context.Background(), "")
	assert.NotNil(t, c)
}

func TestNewConnectorWithToken(t *testing.T) {
	c := NewConnector(context.Background(), "ghp_faketoken")
	assert.NotNil(t, c)
}

func TestParseLocatorVariants(t *testing.T) {
	cases := []struct {
		locator   string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"acme/widgets", "acme", "widgets", false},
		{"github.com/acme/widgets", "acme", "widgets", false},
		{"https://github.com/acme/widgets", "acme", "widgets", false},
		{"https://github.com/acme/widgets.git", "acme", "widgets", false},
		{"not-a-valid-locator", "", "", true},
		{"too/many/segments/here", "", "", true},
	}

	for _, tc := range cases {
		owner, repo, err := ParseLocator(tc.locator)
		if tc.wantErr {
			assert.Error(t, err, tc.locator)
			continue
		}
		assert.NoError(t, err, tc.locator)
		assert.Equal(t, tc.wantOwner, owner, tc.locator)
		assert.Equal(t, tc.wantRepo, repo, tc.locator)
	}
}
