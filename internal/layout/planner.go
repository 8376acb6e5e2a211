package layout

import (
	"fmt"
	"sort"

	"github.com/nimbusphere/nimbus/internal/config"
)

// Plan is the outcome of validating a requested topology.
type Plan struct {
	Layout *NodeLayout

	// Errors lists placement violations. A plan with errors has no
	// usable layout.
	Errors []string

	// Supported is false for layouts that are accepted but not
	// officially supported; callers warn and proceed.
	Supported bool
}

// Valid reports whether the plan produced a usable layout.
func (p *Plan) Valid() bool {
	return len(p.Errors) == 0
}

// Planner validates a requested node layout against placement rules.
type Planner interface {
	// Plan validates a full deployment topology.
	Plan(opts *config.Options) *Plan

	// PlanIncrement validates a topology fragment added to a running
	// deployment. Replication checks do not apply; the established
	// factor governs.
	PlanIncrement(opts *config.Options) *Plan
}

// SimplePlanner implements the standard placement rules: exactly one head
// node, database nodes at least matching the replication factor, and at
// least one compute node in multi-node layouts.
type SimplePlanner struct{}

// Plan validates a full topology from either an explicit role map or,
// for cloud deployments, min/max node counts.
func (SimplePlanner) Plan(opts *config.Options) *Plan {
	if len(opts.Nodes) > 0 {
		return planExplicit(opts)
	}
	return planCounts(opts)
}

// PlanIncrement validates additional nodes for an existing deployment.
func (SimplePlanner) PlanIncrement(opts *config.Options) *Plan {
	plan := &Plan{Supported: true}

	if len(opts.Nodes) == 0 {
		plan.Errors = append(plan.Errors, "no nodes given to add")
		return plan
	}

	nodes, errs := nodesFromRoleMap(opts.Nodes)
	plan.Errors = append(plan.Errors, errs...)

	for _, n := range nodes {
		if n.Has(RoleHead) {
			plan.Errors = append(plan.Errors, "cannot add a head node to a running deployment")
		}
		if n.PublicAddr == "" && !opts.IsCloud() {
			plan.Errors = append(plan.Errors, "virtualized deployments require an address for every added node")
		}
	}

	if plan.Valid() {
		plan.Layout = &NodeLayout{Nodes: nodes}
	}
	return plan
}

// planExplicit builds and checks a layout from a role-to-addresses map.
func planExplicit(opts *config.Options) *Plan {
	plan := &Plan{Supported: true}

	nodes, errs := nodesFromRoleMap(opts.Nodes)
	plan.Errors = append(plan.Errors, errs...)
	if !plan.Valid() {
		return plan
	}

	layout := &NodeLayout{Nodes: nodes}

	switch layout.count(RoleHead) {
	case 0:
		plan.Errors = append(plan.Errors, "topology has no head node")
	case 1:
		// ok
	default:
		plan.Errors = append(plan.Errors, "topology has more than one head node")
	}

	if !opts.IsCloud() {
		for _, n := range nodes {
			if n.PublicAddr == "" {
				plan.Errors = append(plan.Errors, "virtualized deployments require an address for every node")
				break
			}
		}
	}

	// A lone head node implicitly carries every role.
	if len(nodes) == 1 && plan.Valid() {
		head := layout.Head()
		if head != nil {
			head.AddRole(RoleDatabase)
			head.AddRole(RoleCompute)
		}
		plan.Layout = layout
		return plan
	}

	if layout.count(RoleDatabase) == 0 {
		plan.Errors = append(plan.Errors, "topology has no database nodes")
	}
	if layout.count(RoleCompute) == 0 {
		plan.Errors = append(plan.Errors, "topology has no compute nodes")
	}

	replication := opts.ReplicationFactor
	if replication > 0 && layout.count(RoleDatabase) < replication {
		plan.Errors = append(plan.Errors,
			fmt.Sprintf("%d database nodes cannot satisfy a replication factor of %d",
				layout.count(RoleDatabase), replication))
	}

	// Layouts that stack application roles on the head node work, but
	// are not what we size or test for.
	if head := layout.Head(); head != nil && (head.Has(RoleDatabase) || head.Has(RoleCompute)) {
		plan.Supported = false
	}

	if plan.Valid() {
		plan.Layout = layout
	}
	return plan
}

// planCounts builds a layout from min/max node counts for cloud
// deployments where addresses are assigned at provisioning time.
func planCounts(opts *config.Options) *Plan {
	plan := &Plan{Supported: true}

	if opts.MinNodes < 1 {
		plan.Errors = append(plan.Errors, "min_nodes must be at least 1")
	}
	if opts.MaxNodes < opts.MinNodes {
		plan.Errors = append(plan.Errors, "max_nodes must not be below min_nodes")
	}
	replication := opts.ReplicationFactor
	if replication > 0 && opts.MinNodes > 1 && opts.MinNodes-1 < replication {
		plan.Errors = append(plan.Errors,
			fmt.Sprintf("%d nodes cannot satisfy a replication factor of %d", opts.MinNodes, replication))
	}
	if !plan.Valid() {
		return plan
	}

	layout := &NodeLayout{}
	if opts.MinNodes == 1 {
		layout.Nodes = append(layout.Nodes, Node{Roles: []Role{RoleHead, RoleDatabase, RoleCompute}})
		// Single-node deployments stack everything on the head.
		plan.Supported = false
	} else {
		layout.Nodes = append(layout.Nodes, Node{Roles: []Role{RoleHead}})
		if replication < 1 {
			replication = 1
		}
		for i := 1; i < opts.MinNodes; i++ {
			n := Node{}
			if i <= replication {
				n.AddRole(RoleDatabase)
			}
			n.AddRole(RoleCompute)
			layout.Nodes = append(layout.Nodes, n)
		}
	}

	// Elastic rosters are accepted but the controller's auto-scaling of
	// them is not officially supported.
	if opts.MaxNodes > opts.MinNodes {
		plan.Supported = false
	}

	plan.Layout = layout
	return plan
}

// nodesFromRoleMap inverts a role-to-addresses map into per-node role
// sets. Addresses appearing under several roles become one node carrying
// all of them.
func nodesFromRoleMap(roleMap map[string][]string) ([]Node, []string) {
	var errs []string
	byAddr := make(map[string]*Node)
	var order []string

	names := make([]string, 0, len(roleMap))
	for name := range roleMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		for _, addr := range roleMap[name] {
			n, ok := byAddr[addr]
			if !ok {
				n = &Node{PublicAddr: addr}
				byAddr[addr] = n
				order = append(order, addr)
			}
			n.AddRole(role)
		}
	}

	nodes := make([]Node, 0, len(order))
	for _, addr := range order {
		nodes = append(nodes, *byAddr[addr])
	}
	return nodes, errs
}
