// Package state persists deployment metadata locally: the durable record
// mapping a keyname to its secret, head node, node roster, and
// infrastructure kind. The record is written after every state change
// that introduces new reachable addresses so a crash mid-provisioning
// still leaves enough information to reach already-started nodes.
package state

import (
	"fmt"
	"time"

	"github.com/nimbusphere/nimbus/internal/layout"
)

// NodeRecord is one roster entry.
type NodeRecord struct {
	PublicAddr  string   `yaml:"public_addr"`
	PrivateAddr string   `yaml:"private_addr,omitempty"`
	Roles       []string `yaml:"roles"`
}

// Metadata is the durable record of one deployment.
type Metadata struct {
	Keyname        string       `yaml:"keyname"`
	Secret         string       `yaml:"secret"`
	HeadNode       string       `yaml:"head_node"`
	InstanceID     string       `yaml:"instance_id,omitempty"`
	Infrastructure string       `yaml:"infrastructure"`
	Nodes          []NodeRecord `yaml:"nodes"`
	UpdatedAt      time.Time    `yaml:"updated_at"`
}

// MergeLayout folds a planned layout into the roster. Existing entries are
// updated in place; entries for addresses the layout does not mention are
// kept, so the roster only ever grows.
func (m *Metadata) MergeLayout(l *layout.NodeLayout) {
	if l == nil {
		return
	}
	byAddr := make(map[string]int, len(m.Nodes))
	for i, n := range m.Nodes {
		byAddr[n.PublicAddr] = i
	}

	for _, n := range l.Nodes {
		if n.PublicAddr == "" {
			continue
		}
		roles := make([]string, 0, len(n.Roles))
		for _, r := range n.Roles {
			roles = append(roles, string(r))
		}
		rec := NodeRecord{
			PublicAddr:  n.PublicAddr,
			PrivateAddr: n.PrivateAddr,
			Roles:       roles,
		}
		if i, ok := byAddr[n.PublicAddr]; ok {
			m.Nodes[i] = rec
		} else {
			byAddr[n.PublicAddr] = len(m.Nodes)
			m.Nodes = append(m.Nodes, rec)
		}
	}
}

// Addresses returns the roster's public addresses.
func (m *Metadata) Addresses() []string {
	addrs := make([]string, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		addrs = append(addrs, n.PublicAddr)
	}
	return addrs
}

// Validate checks the record is complete enough to act on. A record that
// fails this is treated as corrupted local state, not a remote condition.
func (m *Metadata) Validate() error {
	if m.Keyname == "" {
		return fmt.Errorf("metadata has no keyname")
	}
	if m.Secret == "" {
		return fmt.Errorf("metadata for %q has no secret", m.Keyname)
	}
	if m.HeadNode == "" {
		return fmt.Errorf("metadata for %q has no head node", m.Keyname)
	}
	return nil
}
