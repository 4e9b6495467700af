// Package relstore implements Rel, the tagged directed association between
// two addressable things (items, certs, sets, set-cates). Grounded on the
// Store/Checker split of the teacher's pkg/rbac (store.go does raw CRUD,
// checker.go applies business rules such as scope visibility and env
// predicates on top).
package relstore

import (
	"encoding/json"
	"time"
)

// FromKind identifies what side of a Rel the "from" endpoint is.
type FromKind string

const (
	FromItem    FromKind = "item"
	FromCert    FromKind = "cert"
	FromSet     FromKind = "set"
	FromSetCate FromKind = "set_cate"
)

// EnvKind identifies an environmental predicate attached to a Rel.
type EnvKind string

const (
	EnvDatetimeRange EnvKind = "datetime_range"
)

// Env is one environmental constraint evaluated at authorization time.
type Env struct {
	Kind   EnvKind `json:"kind"`
	Value1 string  `json:"value1"`
	Value2 string  `json:"value2,omitempty"`
}

// Rel is a tagged directed association: from(Kind,ID) -> to(ItemID).
type Rel struct {
	ID           string
	Tag          string
	FromKind     FromKind
	FromID       string
	ToItemID     string
	FromOwnPaths string
	ToOwnPaths   string
	Ext          json.RawMessage
	Env          []Env
	CreateTime   time.Time
	UpdateTime   time.Time
}

// EnvSatisfied evaluates a Rel's env predicates against the instant now.
// Absence of any env entries means the Rel is always valid.
func (r Rel) EnvSatisfied(now time.Time) bool {
	for _, e := range r.Env {
		if e.Kind == EnvDatetimeRange && !datetimeRangeSatisfied(e, now) {
			return false
		}
	}
	return true
}

func datetimeRangeSatisfied(e Env, now time.Time) bool {
	if e.Value1 != "" {
		start, err := time.Parse(time.RFC3339, e.Value1)
		if err == nil && now.Before(start) {
			return false
		}
	}
	if e.Value2 != "" {
		end, err := time.Parse(time.RFC3339, e.Value2)
		if err == nil && now.After(end) {
			return false
		}
	}
	return true
}
