package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edp1096/spicelib/pkg/device"
	"github.com/edp1096/spicelib/pkg/matrix"
)

// ConnectivityError names nodes with no path to ground.
type ConnectivityError struct {
	Floating []string
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("nodes without a path to ground: %s", strings.Join(e.Floating, ", "))
}

// SingularError reports a topology whose DC system cannot be factored.
// Loop names the entities that close a loop of voltage-defined branches.
type SingularError struct {
	Loop []string
	Err  error
}

func (e *SingularError) Error() string {
	if len(e.Loop) > 0 {
		return fmt.Sprintf("voltage sources or inductors form a loop at %s: %v", strings.Join(e.Loop, ", "), e.Err)
	}
	return fmt.Sprintf("nodal matrix is singular: %v", e.Err)
}

func (e *SingularError) Unwrap() error { return e.Err }

// nodeSets is a union-find over node names; ground is the empty name.
type nodeSets map[string]string

func (s nodeSets) find(n string) string {
	if IsGround(n) {
		n = ""
	}
	p, ok := s[n]
	if !ok || p == n {
		s[n] = n
		return n
	}
	root := s.find(p)
	s[n] = root
	return root
}

// union joins the sets of a and b and reports false if they were already one.
func (s nodeSets) union(a, b string) bool {
	ra, rb := s.find(a), s.find(b)
	if ra == rb {
		return false
	}
	s[ra] = rb
	return true
}

// Kinds whose first two pins carry a branch current at DC
func hasBranch(k device.Kind) bool {
	return k == device.VoltageSource || k == device.VCVS || k == device.Inductor
}

// FloatingNodes returns the nodes not connected to ground through any
// entity, sorted. Every pin of an entity is treated as connected to the
// others; subcircuit ports are assumed connected through the body.
func (c *Circuit) FloatingNodes() []string {
	sets := make(nodeSets)
	for _, e := range c.entities {
		if len(e.Pins) == 0 {
			continue
		}
		for _, pin := range e.Pins[1:] {
			sets.union(e.Pins[0].Node, pin.Node)
		}
	}

	ground := sets.find("")
	var floating []string
	for _, node := range c.nodeOrder {
		if IsGround(node) {
			continue
		}
		if sets.find(node) != ground {
			floating = append(floating, node)
		}
	}
	sort.Strings(floating)
	return floating
}

// CheckConnectivity verifies the circuit can be handed to the engine: every
// node must reach ground and the DC system must be non-singular. Sources,
// VCVS outputs and inductors get a branch row each, every other pin pair a
// unit conductance, and the resulting matrix is factored.
func (c *Circuit) CheckConnectivity() error {
	if floating := c.FloatingNodes(); len(floating) > 0 {
		return &ConnectivityError{Floating: floating}
	}

	index := make(map[string]int)
	for _, node := range c.nodeOrder {
		if !IsGround(node) {
			index[node] = len(index) + 1
		}
	}
	if len(index) == 0 {
		return nil
	}

	size := len(index)
	for _, e := range c.entities {
		if hasBranch(e.Spec.Kind) && len(e.Pins) >= 2 {
			size++
		}
	}

	mat, err := matrix.NewMatrix(size)
	if err != nil {
		return err
	}
	defer mat.Destroy()

	branch := len(index)
	for _, e := range c.entities {
		if len(e.Pins) == 0 {
			continue
		}
		n1 := index[e.Pins[0].Node]
		rest := e.Pins[1:]
		if hasBranch(e.Spec.Kind) && len(e.Pins) >= 2 {
			branch++
			matrix.StampBranch(mat, n1, index[e.Pins[1].Node], branch)
			rest = e.Pins[2:]
		}
		for _, pin := range rest {
			matrix.StampConductance(mat, n1, index[pin.Node], 1.0)
		}
	}

	if err := mat.Factor(); err != nil {
		return fmt.Errorf("circuit %s is not solvable: %w", c.name, &SingularError{Loop: c.branchLoops(), Err: err})
	}
	return nil
}

// branchLoops returns the entities that close a loop made only of
// voltage-defined branches, in insertion order.
func (c *Circuit) branchLoops() []string {
	sets := make(nodeSets)
	var loop []string
	for _, e := range c.entities {
		if !hasBranch(e.Spec.Kind) || len(e.Pins) < 2 {
			continue
		}
		if !sets.union(e.Pins[0].Node, e.Pins[1].Node) {
			loop = append(loop, e.Name())
		}
	}
	return loop
}
