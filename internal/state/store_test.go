package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/layout"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	meta := &Metadata{
		Keyname:        "prod-east",
		Secret:         "deadbeef",
		HeadNode:       "203.0.113.10",
		Infrastructure: "hcloud",
		Nodes: []NodeRecord{
			{PublicAddr: "203.0.113.10", Roles: []string{"head"}},
		},
	}
	require.NoError(t, s.Save(meta))
	assert.True(t, s.Exists("prod-east"))

	got, err := s.Load("prod-east")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", got.Secret)
	assert.Equal(t, "203.0.113.10", got.HeadNode)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestLoadNotFound(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	_, err := s.Load("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, s.Exists("ghost"))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.Save(&Metadata{Keyname: "dev", Secret: "x", HeadNode: "h"}))
	require.NoError(t, s.Delete("dev"))
	assert.False(t, s.Exists("dev"))

	err := s.Delete("dev")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMergeLayoutMonotonic(t *testing.T) {
	t.Parallel()
	meta := &Metadata{
		Keyname: "dev",
		Nodes: []NodeRecord{
			{PublicAddr: "10.0.0.1", Roles: []string{"head"}},
			{PublicAddr: "10.0.0.2", Roles: []string{"database"}},
		},
	}

	meta.MergeLayout(&layout.NodeLayout{Nodes: []layout.Node{
		{PublicAddr: "10.0.0.2", PrivateAddr: "192.168.0.2", Roles: []layout.Role{layout.RoleDatabase, layout.RoleCompute}},
		{PublicAddr: "10.0.0.3", Roles: []layout.Role{layout.RoleCompute}},
		{Roles: []layout.Role{layout.RoleCompute}}, // unprovisioned, no address yet
	}})

	// Previously known nodes are never dropped, updates land in place,
	// new addresses are appended.
	require.Len(t, meta.Nodes, 3)
	assert.Equal(t, "10.0.0.1", meta.Nodes[0].PublicAddr)
	assert.Equal(t, []string{"database", "compute"}, meta.Nodes[1].Roles)
	assert.Equal(t, "192.168.0.2", meta.Nodes[1].PrivateAddr)
	assert.Equal(t, "10.0.0.3", meta.Nodes[2].PublicAddr)
}

func TestMetadataValidate(t *testing.T) {
	t.Parallel()
	ok := &Metadata{Keyname: "k", Secret: "s", HeadNode: "h"}
	assert.NoError(t, ok.Validate())

	assert.Error(t, (&Metadata{Secret: "s", HeadNode: "h"}).Validate())
	assert.Error(t, (&Metadata{Keyname: "k", HeadNode: "h"}).Validate())
	assert.Error(t, (&Metadata{Keyname: "k", Secret: "s"}).Validate())
}

func TestPrivateKeyPath(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	assert.Contains(t, s.PrivateKeyPath("dev"), "dev.key")
}
