package orchestrator

// RegisterTenantRequest carries everything needed to provision a brand new
// tenant: its own item, a default password cert-conf, an admin account, the
// tenant's default role/resource scaffold, and an initial session token.
type RegisterTenantRequest struct {
	DomainID     string
	TenantCode   string
	TenantName   string
	AdminAK      string
	AdminSK      string
	CertKind     string // e.g. "password"
	CertSupplier string // "local" for ak/sk validated locally
}

// RegisterTenantResult reports every id the provisioning sequence minted, so
// callers can immediately act on the new tenant without a re-fetch.
type RegisterTenantResult struct {
	TenantID           string
	AdminCertConfID    string
	TenantAdminRoleID  string
	AppAdminRoleID     string
	ConsoleMenuResID   string
	ConsoleAPIResID    string
	AdminAccountID     string
	AdminCertID        string
	Token              string
}

// RegisterAccountRequest provisions an account within an already-existing
// app's scope.
type RegisterAccountRequest struct {
	AppID        string
	AK           string
	SK           string
	CertKind     string
	CertSupplier string
	ExpireSec         int
	SKLockCycleSec    int
	SKLockErrTimes    int
	SKLockDurationSec int
	CoexistNum        int
}

// RegisterAccountResult reports the ids minted for the new account.
type RegisterAccountResult struct {
	AccountID   string
	CertConfID  string
	CertID      string
	AppRelID    string
}

// TransferAppOwnershipRequest reassigns an app's owner, optionally carrying
// the old owner's admin-role bindings to the new owner and/or dropping the
// old owner's membership in the app entirely.
type TransferAppOwnershipRequest struct {
	AppID            string
	NewOwnerID       string
	AdminRoleID      string // the role that marks an account as an app admin
	RebindAdminRole  bool
	RemoveOldOwner   bool
}
