// Package graph builds a directed knowledge graph from a canonical structure
// and answers adjacency and path queries over it.
package graph

import (
	"fmt"

	"github.com/studyflow-ai/studyflow/internal/domain/knowledge"
)

// NodeType classifies graph nodes by their source entity.
type NodeType string

const (
	TypeChapter NodeType = "chapter"
	TypeTopic   NodeType = "topic"
	TypeFormula NodeType = "formula"
	TypeExample NodeType = "example"
)

// RelationContains is the only relation the built-in hierarchy produces.
const RelationContains = "contains"

// Node is a graph vertex for visualization.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Type  NodeType `json:"type"`
}

// Edge is a directed parent-to-child relation.
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Graph is a directed graph scoped to one build-and-query cycle.
// It is never mutated incrementally; Build constructs it from scratch.
type Graph struct {
	nodes []Node
	index map[string]struct{}
	out   map[string][]string
	in    map[string][]string
	edges []Edge
}

// Build walks chapters, topics, formulas, and examples, inserting one node
// per entity and one "contains" edge from each parent to each direct child.
// Node ids are kept as authored; an id that is already taken by another node
// is scoped under its parent id so sibling subtrees cannot silently
// overwrite each other.
func Build(s knowledge.Structure) *Graph {
	g := &Graph{
		index: make(map[string]struct{}),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}

	for i, ch := range s.Chapters {
		chapterID := g.addNode("", ch.ID, fmt.Sprintf("c%d", i+1), ch.Title, TypeChapter)

		for j, t := range ch.Topics {
			topicID := g.addNode(chapterID, t.ID, fmt.Sprintf("t%d", j+1), t.Title, TypeTopic)
			g.addEdge(chapterID, topicID)

			for k, f := range t.Formulas {
				formulaID := g.addNode(topicID, f.ID, fmt.Sprintf("f%d", k+1), f.Content, TypeFormula)
				g.addEdge(topicID, formulaID)
			}
			for k, e := range t.Examples {
				exampleID := g.addNode(topicID, e.ID, fmt.Sprintf("e%d", k+1), e.Content, TypeExample)
				g.addEdge(topicID, exampleID)
			}
		}
	}

	return g
}

// addNode inserts a node and returns the id actually used.
func (g *Graph) addNode(parentID, id, fallbackID, label string, typ NodeType) string {
	if id == "" {
		id = fallbackID
	}
	if _, taken := g.index[id]; taken && parentID != "" {
		id = parentID + "/" + id
	}
	for n := 2; ; n++ {
		if _, taken := g.index[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s#%d", id, n)
	}

	g.index[id] = struct{}{}
	g.nodes = append(g.nodes, Node{ID: id, Label: label, Type: typ})
	return id
}

func (g *Graph) addEdge(source, target string) {
	g.edges = append(g.edges, Edge{Source: source, Target: target, Relation: RelationContains})
	g.out[source] = append(g.out[source], target)
	g.in[target] = append(g.in[target], source)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// Related returns the union of direct predecessors and successors of id,
// not transitive. Unknown ids yield an empty slice.
func (g *Graph) Related(id string) []string {
	if _, ok := g.index[id]; !ok {
		return []string{}
	}

	seen := make(map[string]struct{})
	related := []string{}
	for _, neighbors := range [][]string{g.in[id], g.out[id]} {
		for _, n := range neighbors {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			related = append(related, n)
		}
	}
	return related
}

// ShortestPath returns the unweighted shortest directed path from source to
// target, inclusive of both. Missing nodes or an unreachable target yield an
// empty slice, not an error.
func (g *Graph) ShortestPath(source, target string) []string {
	if _, ok := g.index[source]; !ok {
		return []string{}
	}
	if _, ok := g.index[target]; !ok {
		return []string{}
	}
	if source == target {
		return []string{source}
	}

	prev := map[string]string{source: ""}
	queue := []string{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.out[cur] {
			if _, visited := prev[next]; visited {
				continue
			}
			prev[next] = cur
			if next == target {
				return tracePath(prev, source, target)
			}
			queue = append(queue, next)
		}
	}
	return []string{}
}

func tracePath(prev map[string]string, source, target string) []string {
	var path []string
	for cur := target; cur != ""; cur = prev[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
