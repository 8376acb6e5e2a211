package testing

import (
	"maps"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/state"
)

// OptionsBuilder provides a fluent interface for constructing test
// options. Each method returns a new builder for chaining.
type OptionsBuilder struct {
	opts config.Options
}

// NewOptionsBuilder creates a builder with a virtualized three-node
// deployment as the baseline.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{
		opts: config.Options{
			Keyname:        "test-deploy",
			Infrastructure: config.InfraVirtualized,
			Nodes: map[string][]string{
				"head":     {"10.0.0.1"},
				"database": {"10.0.0.2"},
				"compute":  {"10.0.0.3"},
			},
			ReplicationFactor: 1,
		},
	}
}

func (b *OptionsBuilder) clone() *OptionsBuilder {
	nb := &OptionsBuilder{opts: b.opts}
	if b.opts.Nodes != nil {
		nb.opts.Nodes = make(map[string][]string, len(b.opts.Nodes))
		maps.Copy(nb.opts.Nodes, b.opts.Nodes)
	}
	return nb
}

// WithKeyname sets the deployment identifier.
func (b *OptionsBuilder) WithKeyname(keyname string) *OptionsBuilder {
	nb := b.clone()
	nb.opts.Keyname = keyname
	return nb
}

// WithInfrastructure sets the infrastructure kind.
func (b *OptionsBuilder) WithInfrastructure(kind string) *OptionsBuilder {
	nb := b.clone()
	nb.opts.Infrastructure = kind
	return nb
}

// WithNodes replaces the role map.
func (b *OptionsBuilder) WithNodes(nodes map[string][]string) *OptionsBuilder {
	nb := b.clone()
	nb.opts.Nodes = nodes
	return nb
}

// WithCounts switches to count-based placement.
func (b *OptionsBuilder) WithCounts(minNodes, maxNodes int) *OptionsBuilder {
	nb := b.clone()
	nb.opts.Nodes = nil
	nb.opts.MinNodes = minNodes
	nb.opts.MaxNodes = maxNodes
	return nb
}

// WithApp sets the application fields used by deploy and remove.
func (b *OptionsBuilder) WithApp(name, file string) *OptionsBuilder {
	nb := b.clone()
	nb.opts.AppName = name
	nb.opts.File = file
	return nb
}

// Build returns the assembled options.
func (b *OptionsBuilder) Build() *config.Options {
	opts := b.opts
	return &opts
}

// NewTestMetadata returns a populated metadata record for a three-node
// virtualized deployment.
func NewTestMetadata(keyname string) *state.Metadata {
	return &state.Metadata{
		Keyname:        keyname,
		Secret:         "74657374536563726574",
		HeadNode:       "10.0.0.1",
		Infrastructure: config.InfraVirtualized,
		Nodes: []state.NodeRecord{
			{PublicAddr: "10.0.0.1", Roles: []string{"head"}},
			{PublicAddr: "10.0.0.2", Roles: []string{"database"}},
			{PublicAddr: "10.0.0.3", Roles: []string{"compute"}},
		},
	}
}

// NewTestLayout returns a valid three-node layout matching
// NewTestMetadata.
func NewTestLayout() *layout.NodeLayout {
	return &layout.NodeLayout{Nodes: []layout.Node{
		{PublicAddr: "10.0.0.1", Roles: []layout.Role{layout.RoleHead}},
		{PublicAddr: "10.0.0.2", Roles: []layout.Role{layout.RoleDatabase}},
		{PublicAddr: "10.0.0.3", Roles: []layout.Role{layout.RoleCompute}},
	}}
}
