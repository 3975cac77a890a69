// Package tree nests flat parent-linked rows.
package tree

import (
	"cmp"
	"slices"
)

// Node is one row plus its children, rendered flat for JSON.
type Node map[string]any

// Build nests rows by idKey and parentKey under childrenKey.  A row whose
// parent is 0, nil, or absent from rows becomes a root.  Roots keep input
// order; every children list is stably sorted by its "sort" value.
func Build(rows []map[string]any, idKey, parentKey, childrenKey string) []Node {
	nodes := make(map[any]Node, len(rows))
	for _, r := range rows {
		n := make(Node, len(r)+1)
		for k, v := range r {
			n[k] = v
		}
		n[childrenKey] = []Node{}
		nodes[r[idKey]] = n
	}

	roots := []Node{}
	for _, r := range rows {
		n := nodes[r[idKey]]
		parent, ok := nodes[r[parentKey]]
		if isZero(r[parentKey]) || !ok {
			roots = append(roots, n)
			continue
		}
		parent[childrenKey] = append(parent[childrenKey].([]Node), n)
	}
	for _, n := range roots {
		sortChildren(n, childrenKey)
	}
	return roots
}

func sortChildren(n Node, childrenKey string) {
	kids := n[childrenKey].([]Node)
	slices.SortStableFunc(kids, func(a, b Node) int { return cmp.Compare(sortKey(a), sortKey(b)) })
	for _, k := range kids {
		sortChildren(k, childrenKey)
	}
}

func sortKey(n Node) int64 {
	switch v := n["sort"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case int64:
		return x == 0
	case int:
		return x == 0
	}
	return false
}
