package certconf

import (
	"context"
	"time"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

// TokenRevoker is implemented by pkg/token.Manager; certconf depends on the
// narrow interface rather than the concrete package to avoid a cycle (token
// issuance in turn depends on a verified Cert).
type TokenRevoker interface {
	RevokeAllForOwner(ctx context.Context, ownerID string) error
}

// CertConfService applies policy-level operations on top of Store's raw
// cert-conf CRUD: enable/disable with lockout-cache clearing (§4.9).
type CertConfService struct {
	store   *Store
	lockout *LockoutTracker
}

func NewCertConfService(store *Store, lockout *LockoutTracker) *CertConfService {
	return &CertConfService{store: store, lockout: lockout}
}

// Enable flips status to Enabled and clears any stale lockout state for
// every ak under this cert-conf, so a re-enabled cert-conf starts with a
// clean lockout window rather than inheriting pre-disable failure counts.
// akHint lists the aks known to have lockout state; callers without a
// tracked list may pass nil and rely on TTL expiry instead.
func (s *CertConfService) Enable(ctx context.Context, certConfID string, akHint []string) error {
	if err := s.store.SetCertConfStatus(ctx, certConfID, StatusEnabled); err != nil {
		return err
	}
	for _, ak := range akHint {
		if err := s.lockout.ClearAll(ctx, certConfID, ak); err != nil {
			return err
		}
	}
	return nil
}

// Disable flips status to Disabled and clears lockout state the same way.
func (s *CertConfService) Disable(ctx context.Context, certConfID string, akHint []string) error {
	if err := s.store.SetCertConfStatus(ctx, certConfID, StatusDisabled); err != nil {
		return err
	}
	for _, ak := range akHint {
		if err := s.lockout.ClearAll(ctx, certConfID, ak); err != nil {
			return err
		}
	}
	return nil
}

// CertService applies credential validation, lockout, and third-party
// binding on top of Store's raw cert CRUD.
type CertService struct {
	store   *Store
	lockout *LockoutTracker
	tokens  TokenRevoker
}

func NewCertService(store *Store, lockout *LockoutTracker, tokens TokenRevoker) *CertService {
	return &CertService{store: store, lockout: lockout, tokens: tokens}
}

// Verify checks a candidate SK against the stored cert, enforcing the
// lockout protocol from §4.5. A successful verify resets the failure
// counter; a failure increments it and locks the ak once the threshold is
// reached.
func (s *CertService) Verify(ctx context.Context, cc *CertConf, ak, candidate string) (*Cert, error) {
	locked, err := s.lockout.IsLocked(ctx, cc.ID, ak)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, iamerrors.Wrap(iamerrors.ErrLocked, "ak %q is locked out", ak)
	}

	cert, err := s.store.GetCertByAK(ctx, cc.ID, ak)
	if err != nil {
		return nil, err
	}
	if !cert.Active(time.Now().UTC()) {
		return nil, iamerrors.Wrap(iamerrors.ErrUnauthorized, "cert for ak %q is not active", ak)
	}

	if cert.IsExternal() {
		// Third-party-bound certs are pre-verified by the supplier;
		// the ak/sk path never runs for them (§4.9).
		return cert, nil
	}

	if !VerifySecret(candidate, cert.SK) {
		lockedNow, err := s.lockout.RecordFailure(ctx, cc.ID, ak, cc.SKLockCycleSec, cc.SKLockErrTimes)
		if err != nil {
			return nil, err
		}
		if lockedNow {
			if err := s.lockout.Lock(ctx, cc.ID, ak, cc.SKLockDurationSec); err != nil {
				return nil, err
			}
			return nil, iamerrors.Wrap(iamerrors.ErrLocked, "ak %q locked after repeated failures", ak)
		}
		return nil, iamerrors.Wrap(iamerrors.ErrUnauthorized, "invalid credential")
	}

	if err := s.lockout.Reset(ctx, cc.ID, ak); err != nil {
		return nil, err
	}
	return cert, nil
}

// Modify replaces a cert's secret, enforcing the repeatable=false history
// check, and revokes all of the cert owner's tokens per §4.5.
func (s *CertService) Modify(ctx context.Context, cc *CertConf, certID, newSK string) error {
	if !cc.Repeatable {
		history, err := s.store.RecentSKs(ctx, certID, cc.RepeatableWindow)
		if err != nil {
			return err
		}
		for _, prior := range history {
			if VerifySecret(newSK, prior) {
				return iamerrors.Wrap(iamerrors.ErrPolicyViolation, "secret reuses one of the last %d credentials", cc.RepeatableWindow)
			}
		}
	}

	cert, err := s.store.GetCert(ctx, certID)
	if err != nil {
		return err
	}
	if !cc.Repeatable && VerifySecret(newSK, cert.SK) {
		return iamerrors.Wrap(iamerrors.ErrPolicyViolation, "secret matches the current credential")
	}

	hashed, err := HashSecret(newSK)
	if err != nil {
		return err
	}
	if err := s.store.RecordSKHistory(ctx, certID, cert.SK); err != nil {
		return err
	}
	if err := s.store.UpdateSK(ctx, certID, hashed); err != nil {
		return err
	}
	return s.tokens.RevokeAllForOwner(ctx, cert.RelID)
}

// BindExternal creates a cert bound to a third-party supplier's credential,
// restricted to rel_kind = Item per §4.9.
func (s *CertService) BindExternal(ctx context.Context, cc *CertConf, supplier, relItemID, externalAK string) (*Cert, error) {
	cert := &Cert{
		AK:            externalAK,
		Kind:          cc.Kind,
		Supplier:      supplier,
		RelCertConfID: cc.ID,
		RelKind:       RelKindItem,
		RelID:         relItemID,
		Status:        StatusEnabled,
	}
	if err := s.store.CreateCert(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// FindExternal looks up the third-party-bound cert for an item, if any.
func (s *CertService) FindExternal(ctx context.Context, certConfID, relItemID string) (*Cert, error) {
	cert, err := s.store.GetCertByRelItem(ctx, certConfID, relItemID)
	if err != nil {
		return nil, err
	}
	if !cert.IsExternal() {
		return nil, iamerrors.Wrap(iamerrors.ErrNotFound, "no external binding for item %s", relItemID)
	}
	return cert, nil
}
