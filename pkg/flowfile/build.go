package flowfile

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/ha1tch/flow-toolkit/pkg/graph"
	"github.com/ha1tch/flow-toolkit/pkg/link"
)

// Builder turns records back into live objects.
type Builder struct {
	Factory     *graph.Factory
	PortSpacing float64
}

// Build adds the records to reg. Nodes get fresh ports from their
// descriptor; links are reconnected by endpoint reference through the link
// protocol, after every node and element, in recorded port order so that
// broadcast fan-outs keep their indexes; the links then take back their
// recorded scene order. Elements are inserted as they are.
// reg is normally a fresh staging registry: on error it is left partially
// built and should be discarded.
func (b Builder) Build(ctx context.Context, reg *graph.Registry, sync *graph.Synchronizer, records []Record) error {
	var links []Record
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch r.Kind {
		case KindLink:
			links = append(links, r)
		case KindNode:
			if err := b.addNode(reg, r); err != nil {
				return err
			}
		case KindElement:
			if err := b.addElement(reg, r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("record %q: unknown kind %q", r.ID, r.Kind)
		}
	}

	for _, n := range reg.Nodes() {
		graph.PlacePorts(n)
	}

	byPort := slices.Clone(links)
	slices.SortStableFunc(byPort, func(a, b Record) int {
		if c := cmp.Compare(a.FromNodeID, b.FromNodeID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.FromPortID, b.FromPortID); c != 0 {
			return c
		}
		return cmp.Compare(a.FromPortIndex, b.FromPortIndex)
	})
	for _, r := range byPort {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := link.Connect(reg, sync, b.Factory, link.Spec{
			ID:         r.ID,
			Type:       r.Type,
			FromNodeID: r.FromNodeID,
			FromPortID: r.FromPortID,
			ToNodeID:   r.ToNodeID,
			ToPortID:   r.ToPortID,
		})
		if err != nil {
			return fmt.Errorf("link %s (%s/%s -> %s/%s): %w",
				r.ID, r.FromNodeID, r.FromPortID, r.ToNodeID, r.ToPortID, err)
		}
	}

	base := reg.Len() - len(links)
	for i, r := range links {
		reg.MoveTo(r.ID, base+i)
	}
	return nil
}

func (b Builder) addNode(reg *graph.Registry, r Record) error {
	obj, err := b.Factory.New(r.Options())
	if err != nil {
		return fmt.Errorf("node %s: %w", r.ID, err)
	}
	n, ok := obj.(*graph.Node)
	if !ok {
		return fmt.Errorf("node %s: type %q builds a %s", r.ID, r.Type, obj.Kind())
	}
	if err := n.CreatePorts(b.PortSpacing); err != nil {
		return err
	}
	return reg.Add(n)
}

func (b Builder) addElement(reg *graph.Registry, r Record) error {
	obj, err := b.Factory.New(r.Options())
	if err != nil {
		return fmt.Errorf("element %s: %w", r.ID, err)
	}
	if obj.Kind() != graph.KindElement {
		return fmt.Errorf("element %s: type %q builds a %s", r.ID, r.Type, obj.Kind())
	}
	return reg.Add(obj)
}
