package graph

import (
	"fmt"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// PortKey identifies a port in the registry.
type PortKey struct {
	NodeID string `json:"nodeId"`
	PortID string `json:"portId"`
}

func (k PortKey) String() string { return k.NodeID + "/" + k.PortID }

// Registry is the arena of live scene objects. It keeps scene (z) order for
// nodes, links and elements, an id index over them, and a port index keyed
// by (node, port). Objects with an empty id stay in the scene but are not
// indexed.
type Registry struct {
	order []Object
	byID  map[string]Object
	ports map[PortKey]*Port
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]Object),
		ports: make(map[PortKey]*Port),
	}
}

// Add appends obj to the scene and indexes it along with any ports it owns.
func (r *Registry) Add(obj Object) error {
	if obj.Kind() == KindPort {
		return fmt.Errorf("ports are added with their node: %w", ErrPolicy)
	}
	if id := obj.ObjectID(); id != "" {
		if _, exists := r.byID[id]; exists {
			return fmt.Errorf("%s %q: %w", obj.Kind(), id, ErrDuplicateID)
		}
	}
	r.order = append(r.order, obj)
	r.index(obj)
	return nil
}

func (r *Registry) index(obj Object) {
	id := obj.ObjectID()
	if id == "" {
		return
	}
	r.byID[id] = obj
	if n, ok := obj.(*Node); ok {
		r.indexPorts(n)
	}
}

func (r *Registry) indexPorts(n *Node) {
	for _, p := range n.Ports() {
		p.NodeID = n.ID
		r.ports[p.Key()] = p
	}
}

// ReindexPorts refreshes the port index of a node after its ports were
// recreated.
func (r *Registry) ReindexPorts(n *Node) {
	for k := range r.ports {
		if k.NodeID == n.ID {
			delete(r.ports, k)
		}
	}
	r.indexPorts(n)
}

// Remove takes the object with the given id out of the scene and returns it.
// Links attached to a removed node are not touched; callers disconnect them
// first.
func (r *Registry) Remove(id string) (Object, bool) {
	obj, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	if n, isNode := obj.(*Node); isNode {
		for _, p := range n.Ports() {
			delete(r.ports, p.Key())
		}
	}
	for i, o := range r.order {
		if o == obj {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return obj, true
}

// FindByID returns the object with the given id. A miss logs a warning and
// returns false.
func (r *Registry) FindByID(id string) (Object, bool) {
	obj, ok := r.byID[id]
	if !ok {
		logging.Warn("object not found", "id", id)
	}
	return obj, ok
}

// Has reports whether id is indexed, without logging.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Node returns the node with the given id, or nil.
func (r *Registry) Node(id string) *Node {
	n, _ := r.byID[id].(*Node)
	return n
}

// Link returns the link with the given id, or nil.
func (r *Registry) Link(id string) *Link {
	l, _ := r.byID[id].(*Link)
	return l
}

// Element returns the element with the given id, or nil.
func (r *Registry) Element(id string) *Element {
	e, _ := r.byID[id].(*Element)
	return e
}

// Port returns the port of a node, or nil.
func (r *Registry) Port(nodeID, portID string) *Port {
	return r.ports[PortKey{nodeID, portID}]
}

// PortByKey returns the port with the given key, or nil.
func (r *Registry) PortByKey(k PortKey) *Port {
	return r.ports[k]
}

// Objects returns the scene in order. The slice is a copy.
func (r *Registry) Objects() []Object {
	return append([]Object(nil), r.order...)
}

// Nodes returns all nodes in scene order.
func (r *Registry) Nodes() []*Node {
	var out []*Node
	for _, o := range r.order {
		if n, ok := o.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// Links returns all links in scene order.
func (r *Registry) Links() []*Link {
	var out []*Link
	for _, o := range r.order {
		if l, ok := o.(*Link); ok {
			out = append(out, l)
		}
	}
	return out
}

// Elements returns all elements in scene order.
func (r *Registry) Elements() []*Element {
	var out []*Element
	for _, o := range r.order {
		if e, ok := o.(*Element); ok {
			out = append(out, e)
		}
	}
	return out
}

// Ports returns every indexed port.
func (r *Registry) Ports() []*Port {
	out := make([]*Port, 0, len(r.ports))
	for _, n := range r.Nodes() {
		out = append(out, n.Ports()...)
	}
	return out
}

// Each calls fn for every object in scene order, ports included right after
// their node.
func (r *Registry) Each(fn func(Object)) {
	for _, o := range r.order {
		fn(o)
		if n, ok := o.(*Node); ok {
			for _, p := range n.Ports() {
				fn(p)
			}
		}
	}
}

// Len returns the number of scene objects (ports excluded).
func (r *Registry) Len() int { return len(r.order) }

// IndexOf returns the scene position of id, or -1.
func (r *Registry) IndexOf(id string) int {
	for i, o := range r.order {
		if o.ObjectID() == id {
			return i
		}
	}
	return -1
}

// MoveTo moves the object to scene position idx, clamped to the scene.
// It reports whether the order changed.
func (r *Registry) MoveTo(id string, idx int) bool {
	from := r.IndexOf(id)
	if from < 0 {
		return false
	}
	idx = max(0, min(idx, len(r.order)-1))
	if idx == from {
		return false
	}
	obj := r.order[from]
	r.order = append(r.order[:from], r.order[from+1:]...)
	r.order = append(r.order[:idx], append([]Object{obj}, r.order[idx:]...)...)
	return true
}

// Rebuild recomputes the id and port indexes from the scene order.
func (r *Registry) Rebuild() {
	r.byID = make(map[string]Object, len(r.order))
	r.ports = make(map[PortKey]*Port)
	for _, o := range r.order {
		r.index(o)
	}
}

// Clear empties the registry.
func (r *Registry) Clear() {
	r.order = nil
	r.Rebuild()
}

// Replace swaps in the contents of staged. staged must not be used afterwards.
func (r *Registry) Replace(staged *Registry) {
	r.order = staged.order
	r.byID = staged.byID
	r.ports = staged.ports
	staged.order = nil
	staged.byID = nil
	staged.ports = nil
}

// Bounds returns the union of node and element rectangles.
func (r *Registry) Bounds() (geometry.Rect, bool) {
	var b geometry.Rect
	found := false
	for _, o := range r.order {
		var rect geometry.Rect
		switch v := o.(type) {
		case *Node:
			rect = v.Rect()
		case *Element:
			rect = v.Rect()
		default:
			continue
		}
		if !found {
			b, found = rect, true
			continue
		}
		b = b.Union(rect)
	}
	return b, found
}
