// Package settree implements the ordered category-tree projection (SetCate/
// SetItem) used to organize items into hierarchical sets — org charts,
// resource trees, menu trees. Grounded on the teacher's pkg/dependencies
// graph.go recursive-closure-with-visited-map traversal style, re-targeted
// from a dependency DAG to an ordered prefix tree keyed by sys_code.
package settree

import "time"

// SetCate is a category node within a set, addressed by a base-36
// fixed-width sys_code (see pkg/syscode).
type SetCate struct {
	ID         string
	RelSetID   string
	SysCode    string
	Name       string
	Sort       int
	CreateTime time.Time
	UpdateTime time.Time
}

// SetItem attaches an item to a cate within a set. Uniqueness is on
// (rel_set_id, rel_set_cate_sys_code, rel_item_id).
type SetItem struct {
	ID                string
	RelSetID          string
	RelSetCateSysCode string
	RelItemID         string
	Sort              int
}

// QueryKind selects which part of the tree a traversal covers relative to an
// anchor sys_code.
type QueryKind string

const (
	QueryCurrentAndSub    QueryKind = "current_and_sub"
	QuerySub              QueryKind = "sub"
	QueryCurrentAndParent QueryKind = "current_and_parent"
	QueryParent           QueryKind = "parent"
)

// Filter constrains a tree projection query.
type Filter struct {
	AnchorSysCode         string
	QueryKind             QueryKind
	QueryDepth            int // 0 = unbounded
	RelItemIDs            []string
	RelItemKindIDs        []string
	RelItemDomainIDs      []string
	HideCateWithEmptyItem bool
}

// Node is one row of the flat tree projection: a cate plus its resolved
// parent id and rolled-up item counts.
type Node struct {
	Cate         SetCate
	ParentID     string // empty = root
	Depth        int
	ItemCount    int            // items attached directly to this cate
	RollupCounts map[string]int // item kind -> count, aggregated over this subtree
}
