package circuit

import (
	"fmt"
	"strings"

	"github.com/edp1096/spicelib/internal/consts"
	"github.com/edp1096/spicelib/pkg/library"
	"github.com/edp1096/spicelib/pkg/netlist"
)

// Pin binds a formal pin (device pin or subcircuit port) to a circuit node.
type Pin struct {
	Formal string
	Node   string
}

// Entity is one placed element or subcircuit instance.
type Entity struct {
	Spec netlist.ElementSpec
	Pins []Pin
}

func (e *Entity) Name() string { return e.Spec.Name }

// Circuit is the in-memory model handed to the simulation engine. Callers
// serialize mutations per circuit (see Registry).
type Circuit struct {
	name  string
	Title string

	nodes     map[string]struct{}
	nodeOrder []string

	entities    []*Entity
	entityIndex map[string]int

	subckts     map[string]*library.Definition // materialized at most once per name
	subcktOrder []string
	local       map[string]*library.Definition // inline .subckt blocks of the netlist

	models     map[string]*netlist.ModelSpec
	modelOrder []string
}

func New(name string) *Circuit {
	c := &Circuit{
		name:        name,
		nodes:       make(map[string]struct{}),
		entityIndex: make(map[string]int),
		subckts:     make(map[string]*library.Definition),
		local:       make(map[string]*library.Definition),
		models:      make(map[string]*netlist.ModelSpec),
	}
	c.addNode(consts.GroundNode)
	return c
}

func (c *Circuit) Name() string { return c.name }

// IsGround reports whether node names the ground node.
func IsGround(node string) bool {
	return node == consts.GroundNode || strings.EqualFold(node, consts.GroundAlias)
}

func (c *Circuit) addNode(node string) {
	if _, exists := c.nodes[node]; exists {
		return
	}
	c.nodes[node] = struct{}{}
	c.nodeOrder = append(c.nodeOrder, node)
}

// Nodes returns node names in first-use order; ground comes first.
func (c *Circuit) Nodes() []string {
	return append([]string(nil), c.nodeOrder...)
}

func (c *Circuit) HasNode(node string) bool {
	_, ok := c.nodes[node]
	return ok
}

// Insert places an entity. Instance names are unique case-insensitively.
func (c *Circuit) Insert(e *Entity) error {
	key := library.Key(e.Name())
	if _, exists := c.entityIndex[key]; exists {
		return fmt.Errorf("entity %s already exists in circuit %s", e.Name(), c.name)
	}
	c.entityIndex[key] = len(c.entities)
	c.entities = append(c.entities, e)
	for _, pin := range e.Pins {
		c.addNode(pin.Node)
	}
	return nil
}

func (c *Circuit) HasEntity(name string) bool {
	_, ok := c.entityIndex[library.Key(name)]
	return ok
}

func (c *Circuit) Entity(name string) (*Entity, bool) {
	idx, ok := c.entityIndex[library.Key(name)]
	if !ok {
		return nil, false
	}
	return c.entities[idx], true
}

// Entities returns entities in insertion order.
func (c *Circuit) Entities() []*Entity {
	return append([]*Entity(nil), c.entities...)
}

// UseSubcircuit materializes def once per name. It reports whether this
// call added it.
func (c *Circuit) UseSubcircuit(def *library.Definition) bool {
	key := def.Key()
	if _, exists := c.subckts[key]; exists {
		return false
	}
	c.subckts[key] = def
	c.subcktOrder = append(c.subcktOrder, key)
	return true
}

func (c *Circuit) UsesSubcircuit(name string) bool {
	_, ok := c.subckts[library.Key(name)]
	return ok
}

// Subcircuits returns materialized definitions in first-use order.
func (c *Circuit) Subcircuits() []*library.Definition {
	defs := make([]*library.Definition, 0, len(c.subcktOrder))
	for _, key := range c.subcktOrder {
		defs = append(defs, c.subckts[key])
	}
	return defs
}

// DefineLocal registers a definition that came inline with the netlist.
// Local definitions shadow the library.
func (c *Circuit) DefineLocal(def *library.Definition) {
	c.local[def.Key()] = def
}

func (c *Circuit) LocalDefinition(name string) (*library.Definition, bool) {
	def, ok := c.local[library.Key(name)]
	return def, ok
}

func (c *Circuit) AddModel(m *netlist.ModelSpec) error {
	key := library.Key(m.Name)
	if _, exists := c.models[key]; exists {
		return fmt.Errorf("model %s already exists in circuit %s", m.Name, c.name)
	}
	c.models[key] = m
	c.modelOrder = append(c.modelOrder, key)
	return nil
}

func (c *Circuit) Model(name string) (*netlist.ModelSpec, bool) {
	m, ok := c.models[library.Key(name)]
	return m, ok
}

func (c *Circuit) HasModel(name string) bool {
	_, ok := c.models[library.Key(name)]
	return ok
}

// Models returns models in insertion order.
func (c *Circuit) Models() []*netlist.ModelSpec {
	models := make([]*netlist.ModelSpec, 0, len(c.modelOrder))
	for _, key := range c.modelOrder {
		models = append(models, c.models[key])
	}
	return models
}
