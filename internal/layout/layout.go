// Package layout models deployment topologies: the mapping of platform
// roles to node addresses, and the placement rules a requested topology
// must satisfy before anything is provisioned.
package layout

import (
	"fmt"
	"sort"
	"strings"
)

// Role names a responsibility a node carries within a deployment.
type Role string

const (
	// RoleHead is the coordinating node running the controller service.
	// Exactly one node per deployment holds it.
	RoleHead Role = "head"

	// RoleDatabase nodes store platform and application data.
	RoleDatabase Role = "database"

	// RoleCompute nodes run application servers.
	RoleCompute Role = "compute"

	// RoleCache nodes run the shared object cache.
	RoleCache Role = "cache"

	// RoleOpen nodes carry no fixed role and are assigned work by the
	// controller as needed.
	RoleOpen Role = "open"
)

// roleAliases maps accepted alternate spellings to canonical roles.
var roleAliases = map[string]Role{
	"master":    RoleHead,
	"appserver": RoleCompute,
}

// knownRoles is the set of canonical roles.
var knownRoles = map[Role]bool{
	RoleHead:     true,
	RoleDatabase: true,
	RoleCompute:  true,
	RoleCache:    true,
	RoleOpen:     true,
}

// ParseRole resolves a role name, following aliases.
func ParseRole(name string) (Role, error) {
	if r, ok := roleAliases[name]; ok {
		return r, nil
	}
	r := Role(name)
	if !knownRoles[r] {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return r, nil
}

// IsHeadRole reports whether name denotes the head role, directly or via
// an alias. It does not require the name to be otherwise valid.
func IsHeadRole(name string) bool {
	return Role(name) == RoleHead || roleAliases[name] == RoleHead
}

// Node is one member of a planned topology. Addresses are empty for cloud
// layouts until provisioning assigns them.
type Node struct {
	Roles       []Role
	PublicAddr  string
	PrivateAddr string
}

// Has reports whether the node carries the given role.
func (n Node) Has(role Role) bool {
	for _, r := range n.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole adds a role unless the node already carries it.
func (n *Node) AddRole(role Role) {
	if !n.Has(role) {
		n.Roles = append(n.Roles, role)
	}
}

// NodeLayout is a validated topology. It is created fresh per invocation
// and never mutated after validation.
type NodeLayout struct {
	Nodes []Node
}

// ParseRoleMap builds a layout from a role-to-addresses map, the shape
// used in configuration files and controller responses.
func ParseRoleMap(roleMap map[string][]string) (*NodeLayout, error) {
	nodes, errs := nodesFromRoleMap(roleMap)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid roles: %s", strings.Join(errs, "; "))
	}
	return &NodeLayout{Nodes: nodes}, nil
}

// Head returns the node carrying the head role, or nil.
func (l *NodeLayout) Head() *Node {
	for i := range l.Nodes {
		if l.Nodes[i].Has(RoleHead) {
			return &l.Nodes[i]
		}
	}
	return nil
}

// Addresses returns the public addresses of all nodes that have one.
func (l *NodeLayout) Addresses() []string {
	addrs := make([]string, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		if n.PublicAddr != "" {
			addrs = append(addrs, n.PublicAddr)
		}
	}
	return addrs
}

// count returns how many nodes carry the given role.
func (l *NodeLayout) count(role Role) int {
	c := 0
	for _, n := range l.Nodes {
		if n.Has(role) {
			c++
		}
	}
	return c
}

// RoleMap returns the topology as a role-to-addresses map, the shape the
// controller's start-roles call expects.
func (l *NodeLayout) RoleMap() map[string][]string {
	m := make(map[string][]string)
	for _, n := range l.Nodes {
		for _, r := range n.Roles {
			m[string(r)] = append(m[string(r)], n.PublicAddr)
		}
	}
	for _, addrs := range m {
		sort.Strings(addrs)
	}
	return m
}
