package netns

import (
	"testing"

	"github.com/genzj/warpconnect/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_GoneWhenProcessMissing(t *testing.T) {
	p := &Provider{ProcRoot: t.TempDir()} // empty: no pid subdirectories exist

	_, err := p.Open("c1", 999999)
	require.Error(t, err)

	var nsErr *types.NamespaceError
	require.ErrorAs(t, err, &nsErr)
	assert.True(t, nsErr.Gone)
	assert.Equal(t, "c1", nsErr.ContainerID)
}

func TestNsPath(t *testing.T) {
	p := &Provider{ProcRoot: "/proc"}
	assert.Equal(t, "/proc/4242/ns/net", p.nsPath(4242))
}
