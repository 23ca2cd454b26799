package artifactstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
)

func newTestBadgerGateway(t *testing.T) *BadgerGateway {
	t.Helper()
	dir := t.TempDir()
	gw, err := NewBadgerGateway(&common.BadgerGatewayConfig{Path: filepath.Join(dir, "artifacts")}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })
	return gw
}

func TestBadgerGatewayPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := newTestBadgerGateway(t)

	url, err := gw.Put(ctx, "job-1/README.md", []byte("# Hello"), "text/markdown", "")
	require.NoError(t, err)
	assert.Contains(t, url, "job-1/README.md")

	data, err := gw.Get(ctx, "job-1/README.md")
	require.NoError(t, err)
	assert.Equal(t, "# Hello", string(data))
}

func TestBadgerGatewayDelete(t *testing.T) {
	ctx := context.Background()
	gw := newTestBadgerGateway(t)

	_, err := gw.Put(ctx, "job-2/README.md", []byte("data"), "text/markdown", "")
	require.NoError(t, err)

	require.NoError(t, gw.Delete(ctx, "job-2/README.md"))

	_, err = gw.Get(ctx, "job-2/README.md")
	assert.Error(t, err)
}

func TestBadgerGatewayConfigured(t *testing.T) {
	gw := newTestBadgerGateway(t)
	assert.True(t, gw.Configured())
}
