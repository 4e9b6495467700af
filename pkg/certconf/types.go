// Package certconf implements credential configuration policy (CertConf) and
// credential instances (Cert): secret hashing, lockout, third-party
// credential binding, and cert-conf lifecycle admin operations. Grounded on
// original_source/support/iam/src/basic/serv/iam_cert_serv.rs for the
// lockout-cache-clear-on-toggle and third-party-binding behaviors, and on the
// teacher's pkg/middleware/distributed_ratelimit.go for the failure-window
// counter shape.
package certconf

import "time"

// Status is the lifecycle state of a CertConf or Cert.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
	StatusPending  Status = "pending"
)

// RelKind identifies what a Cert is bound to.
type RelKind string

const (
	RelKindItem RelKind = "item"
	RelKindSet  RelKind = "set"
	RelKindRel  RelKind = "rel"
)

// CertConf is the credential policy for one (kind, supplier, rel_item_id)
// combination. At most one enabled CertConf may exist per that triple.
type CertConf struct {
	ID               string
	Kind             string
	Supplier         string
	RelItemID        string
	AKRule           string
	SKRule           string
	SKEncrypted      bool
	SKNeed           bool
	Repeatable       bool
	RepeatableWindow int // N previous SKs to check when Repeatable is false
	ExpireSec        int
	SKLockCycleSec   int
	SKLockErrTimes   int
	SKLockDurationSec int
	CoexistNum       int
	Status           Status
	CreateTime       time.Time
	UpdateTime       time.Time
}

// Cert is a credential instance: an ak/sk pair (or an external-supplier
// binding) attached to an owning entity.
type Cert struct {
	ID             string
	AK             string
	SK             string // hashed; never the plaintext secret
	Kind           string
	Supplier       string
	RelCertConfID  string
	RelKind        RelKind
	RelID          string
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	Ext            string
	CreateTime     time.Time
	UpdateTime     time.Time
}

// Active reports whether the cert is usable right now: enabled and within
// its validity window.
func (c Cert) Active(now time.Time) bool {
	if c.Status != StatusEnabled {
		return false
	}
	if !c.StartTime.IsZero() && now.Before(c.StartTime) {
		return false
	}
	if !c.EndTime.IsZero() && now.After(c.EndTime) {
		return false
	}
	return true
}

// IsExternal reports whether this cert is bound to a third-party supplier's
// credential rather than validated via ak/sk, per §4.9.
func (c Cert) IsExternal() bool {
	return c.Supplier != "" && c.Supplier != "local"
}
