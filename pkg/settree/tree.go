package settree

import (
	"sort"

	"github.com/ironvault/sentryiam/pkg/syscode"
)

// ItemInfo carries the kind/domain of an item attachment, used for the
// kind_ids/domain_ids filter dimensions. Callers resolve these from
// pkg/itemstore before calling BuildTree.
type ItemInfo struct {
	ItemID   string
	Kind     string
	DomainID string
}

// BuildTree projects a set's cates and items into a flat, parent-tagged,
// rollup-annotated tree, following the recursive-closure-with-visited-map
// traversal style used for dependency-graph rollups, re-targeted from a DAG
// to an ordered prefix tree keyed by sys_code.
func BuildTree(cates []SetCate, items []SetItem, itemInfo map[string]ItemInfo, filter Filter, segWidth int) []Node {
	bySysCode := make(map[string]SetCate, len(cates))
	childrenOf := make(map[string][]string)
	for _, c := range cates {
		bySysCode[c.SysCode] = c
	}
	for _, c := range cates {
		parent := syscode.ParentOf(c.SysCode, segWidth)
		childrenOf[parent] = append(childrenOf[parent], c.SysCode)
	}

	allowedItems := filterItems(items, itemInfo, filter)
	directCount := make(map[string]int)
	for _, it := range allowedItems {
		directCount[it.RelSetCateSysCode]++
	}

	selected := selectSysCodes(cates, filter, segWidth)

	rollup := make(map[string]int)
	visited := make(map[string]bool)
	var accumulate func(sysCode string) int
	accumulate = func(sysCode string) int {
		if visited[sysCode] {
			return rollup[sysCode]
		}
		visited[sysCode] = true
		total := directCount[sysCode]
		for _, child := range childrenOf[sysCode] {
			total += accumulate(child)
		}
		rollup[sysCode] = total
		return total
	}
	for _, c := range cates {
		accumulate(c.SysCode)
	}

	nodes := make([]Node, 0, len(cates))
	for _, c := range cates {
		if selected != nil && !selected[c.SysCode] {
			continue
		}
		if filter.HideCateWithEmptyItem && rollup[c.SysCode] == 0 {
			continue
		}
		nodes = append(nodes, Node{
			Cate:         c,
			ParentID:     parentID(bySysCode, syscode.ParentOf(c.SysCode, segWidth)),
			Depth:        syscode.Depth(c.SysCode, segWidth),
			ItemCount:    directCount[c.SysCode],
			RollupCounts: map[string]int{"total": rollup[c.SysCode]},
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Cate.Sort != nodes[j].Cate.Sort {
			return nodes[i].Cate.Sort < nodes[j].Cate.Sort
		}
		return nodes[i].Cate.SysCode < nodes[j].Cate.SysCode
	})
	return nodes
}

func parentID(bySysCode map[string]SetCate, parentSysCode string) string {
	if parentSysCode == "" {
		return ""
	}
	if c, ok := bySysCode[parentSysCode]; ok {
		return c.ID
	}
	return ""
}

// selectSysCodes resolves the QueryKind/QueryDepth dimensions relative to
// filter.AnchorSysCode. A nil return means "no restriction" (every cate is
// selected).
func selectSysCodes(cates []SetCate, filter Filter, segWidth int) map[string]bool {
	if filter.AnchorSysCode == "" || filter.QueryKind == "" {
		return nil
	}
	anchor := filter.AnchorSysCode
	anchorDepth := syscode.Depth(anchor, segWidth)
	result := make(map[string]bool)

	withinDepth := func(d int) bool {
		if filter.QueryDepth <= 0 {
			return true
		}
		return d-anchorDepth <= filter.QueryDepth
	}

	switch filter.QueryKind {
	case QueryCurrentAndSub:
		for _, c := range cates {
			if c.SysCode == anchor || syscode.IsDescendant(c.SysCode, anchor) {
				if withinDepth(syscode.Depth(c.SysCode, segWidth)) {
					result[c.SysCode] = true
				}
			}
		}
	case QuerySub:
		for _, c := range cates {
			if syscode.IsDescendant(c.SysCode, anchor) {
				if withinDepth(syscode.Depth(c.SysCode, segWidth)) {
					result[c.SysCode] = true
				}
			}
		}
	case QueryCurrentAndParent:
		result[anchor] = true
		for _, p := range syscode.ParentSysCodes(anchor, segWidth) {
			result[p] = true
		}
	case QueryParent:
		for _, p := range syscode.ParentSysCodes(anchor, segWidth) {
			result[p] = true
		}
	default:
		return nil
	}
	return result
}

func filterItems(items []SetItem, info map[string]ItemInfo, filter Filter) []SetItem {
	if len(filter.RelItemIDs) == 0 && len(filter.RelItemKindIDs) == 0 && len(filter.RelItemDomainIDs) == 0 {
		return items
	}
	idSet := toSet(filter.RelItemIDs)
	kindSet := toSet(filter.RelItemKindIDs)
	domainSet := toSet(filter.RelItemDomainIDs)

	var out []SetItem
	for _, it := range items {
		if len(idSet) > 0 && !idSet[it.RelItemID] {
			continue
		}
		if len(kindSet) > 0 || len(domainSet) > 0 {
			meta, ok := info[it.RelItemID]
			if !ok {
				continue
			}
			if len(kindSet) > 0 && !kindSet[meta.Kind] {
				continue
			}
			if len(domainSet) > 0 && !domainSet[meta.DomainID] {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
