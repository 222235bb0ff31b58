package report

import (
	"bytes"
	"encoding/json"
)

// Tree is the ordered intermediate grouping produced by ApplyGroupBy. Inner
// levels hold children keyed by group value, leaves hold rows.
type Tree struct {
	keys     []treeKey
	children map[treeKey]*Tree
	rows     []Row
}

type treeKey struct {
	value string
	null  bool
}

func newTree() *Tree {
	return &Tree{children: make(map[treeKey]*Tree)}
}

func (t *Tree) child(k treeKey) *Tree {
	c, ok := t.children[k]
	if !ok {
		c = newTree()
		t.children[k] = c
		t.keys = append(t.keys, k)
	}
	return c
}

// ApplyGroupBy buckets rows by every interval date (dates without data keep
// an empty bucket) and nests each bucket by the group-by dimensions in
// order. With a limit, each date bucket is ranked on its own first. Rows
// dated outside dates are dropped.
func ApplyGroupBy(rows []Row, dates, groupBy []string, limit int) *Tree {
	buckets := make(map[string][]Row, len(dates))
	for _, d := range dates {
		buckets[d] = nil
	}
	for _, r := range rows {
		if _, ok := buckets[r.Date]; ok {
			buckets[r.Date] = append(buckets[r.Date], r)
		}
	}

	root := newTree()
	for _, d := range dates {
		bucket := buckets[d]
		if limit > 0 && len(bucket) > 0 {
			bucket = RankedList(bucket, limit, groupBy)
		}
		dateNode := root.child(treeKey{value: d})
		for _, r := range bucket {
			node := dateNode
			for _, dim := range groupBy {
				k := treeKey{null: true}
				if v := r.GroupValue(dim); v != nil {
					k = treeKey{value: *v}
				}
				node = node.child(k)
			}
			node.rows = append(node.rows, r)
		}
	}
	return root
}

// Node is one level of the nested report data.
type Node struct {
	Dimension string
	Value     string
	// Label is "<next dimension>s" for inner levels and "values" for leaves.
	Label    string
	Children []Node
	Rows     []Row
}

// MarshalJSON renders {"<dimension>": value, "<label>": [...]}.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	dim, err := json.Marshal(n.Dimension)
	if err != nil {
		return nil, err
	}
	val, err := json.Marshal(n.Value)
	if err != nil {
		return nil, err
	}
	label, err := json.Marshal(n.Label)
	if err != nil {
		return nil, err
	}

	var items []byte
	if n.Label == "values" {
		rows := n.Rows
		if rows == nil {
			rows = []Row{}
		}
		items, err = json.Marshal(rows)
	} else {
		children := n.Children
		if children == nil {
			children = []Node{}
		}
		items, err = json.Marshal(children)
	}
	if err != nil {
		return nil, err
	}

	buf.WriteByte('{')
	buf.Write(dim)
	buf.WriteByte(':')
	buf.Write(val)
	buf.WriteByte(',')
	buf.Write(label)
	buf.WriteByte(':')
	buf.Write(items)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TransformData converts the tree level at groupIndex into nodes. groups is
// the full grouping including the leading date dimension. NULL group values
// are labelled "no-<dimension>".
func TransformData(groups []string, groupIndex int, tree *Tree) []Node {
	if tree == nil || groupIndex >= len(groups) {
		return nil
	}
	dim := groups[groupIndex]
	label := "values"
	if groupIndex+1 < len(groups) {
		label = groups[groupIndex+1] + "s"
	}

	out := make([]Node, 0, len(tree.keys))
	for _, k := range tree.keys {
		child := tree.children[k]
		n := Node{Dimension: dim, Value: k.value, Label: label}
		if k.null {
			n.Value = "no-" + dim
		}
		if label == "values" {
			n.Rows = child.rows
		} else {
			n.Children = TransformData(groups, groupIndex+1, child)
		}
		out = append(out, n)
	}
	return out
}

// Leaves returns the rows of nodes in depth-first order.
func Leaves(nodes []Node) []Row {
	var out []Row
	for _, n := range nodes {
		out = append(out, n.Rows...)
		out = append(out, Leaves(n.Children)...)
	}
	return out
}
