// Package graph renders a container's dependency graph for the browser
// visualizer and serves it over HTTP.
package graph

import (
	"slices"

	"github.com/samber/lo"

	"github.com/km-arc/go-dipend/framework/dependency"
)

// Missing is the node type of ids referenced as constructor arguments but
// never registered.
const Missing = "MISSING"

// Source is the read-only view of a container the graph is built from.
// *container.Container satisfies it.
type Source interface {
	SortedIDs() ([]string, error)
	Edges() []dependency.Edge
	NodeName(id string) (string, error)
	Lifecycle(id string) (dependency.Lifecycle, error)
}

// Node is one dependency, named after its tokens joined by ":".
type Node struct {
	Node string `json:"node"`
	Type string `json:"type"`
}

// Link points from a consumer to one of its constructor arguments.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Type maps a node type to its display color.
type Type struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// Data is the payload of GET /api/data.
type Data struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Types []Type `json:"types"`
}

// Types lists the node types with their colors.
func Types() []Type {
	return []Type{
		{Type: dependency.Singleton.Label(), Color: "#03C800"},
		{Type: dependency.Transient.Label(), Color: "#FF5733"},
		{Type: dependency.Context.Label(), Color: "#007FE9"},
		{Type: dependency.Deferred.Label(), Color: "#B39DDB"},
		{Type: Missing, Color: "#9E9E9E"},
	}
}

// Build collects nodes in dependency-first order and every edge between them.
func Build(src Source) (*Data, error) {
	ids, err := src.SortedIDs()
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(ids))
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		name, err := src.NodeName(id)
		if err != nil {
			return nil, err
		}
		names[id] = name

		typ := Missing
		if l, err := src.Lifecycle(id); err == nil {
			typ = l.Label()
		}
		nodes = append(nodes, Node{Node: name, Type: typ})
	}

	links := lo.Map(src.Edges(), func(e dependency.Edge, _ int) Link {
		return Link{Source: names[e.From], Target: names[e.To]}
	})

	return &Data{Nodes: nodes, Links: links, Types: Types()}, nil
}

// Filter keeps the nodes whose type is listed, and the links between them.
// An empty list keeps everything.
func (d *Data) Filter(types ...string) *Data {
	if len(types) == 0 {
		return d
	}
	nodes := lo.Filter(d.Nodes, func(n Node, _ int) bool { return slices.Contains(types, n.Type) })
	kept := lo.SliceToMap(nodes, func(n Node) (string, bool) { return n.Node, true })
	links := lo.Filter(d.Links, func(l Link, _ int) bool { return kept[l.Source] && kept[l.Target] })
	return &Data{Nodes: nodes, Links: links, Types: d.Types}
}

// Neighbours returns the node named name with its direct arguments and
// consumers.
func (d *Data) Neighbours(name string) (Node, []string, []string, bool) {
	node, ok := lo.Find(d.Nodes, func(n Node) bool { return n.Node == name })
	if !ok {
		return Node{}, nil, nil, false
	}
	dependsOn := lo.FilterMap(d.Links, func(l Link, _ int) (string, bool) { return l.Target, l.Source == name })
	usedBy := lo.FilterMap(d.Links, func(l Link, _ int) (string, bool) { return l.Source, l.Target == name })
	return node, dependsOn, usedBy, true
}
