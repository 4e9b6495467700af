package certconf

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenRevoker struct {
	revokedOwners []string
}

func (f *fakeTokenRevoker) RevokeAllForOwner(ctx context.Context, ownerID string) error {
	f.revokedOwners = append(f.revokedOwners, ownerID)
	return nil
}

func certRow(ak, hashedSK string, external bool) *sqlmock.Rows {
	cols := []string{"id", "ak", "sk", "kind", "supplier", "rel_cert_conf_id", "rel_kind", "rel_id",
		"start_time", "end_time", "status", "ext", "create_time", "update_time"}
	supplier := "local"
	if external {
		supplier = "oauth2"
	}
	now := time.Now().UTC()
	return sqlmock.NewRows(cols).AddRow(
		"cert-1", ak, hashedSK, "password", supplier, "cc1", "item", "acc-1",
		now.Add(-time.Hour), time.Time{}, "enabled", "", now, now)
}

func TestCertServiceVerifySuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hashed, err := HashSecret("s3cret!")
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM certs WHERE rel_cert_conf_id").
		WillReturnRows(certRow("ak1", hashed, false))

	store := NewStore(db)
	lockout := newTestLockoutTracker(t)
	svc := NewCertService(store, lockout, &fakeTokenRevoker{})

	cc := &CertConf{ID: "cc1", SKLockCycleSec: 60, SKLockErrTimes: 5}
	cert, err := svc.Verify(context.Background(), cc, "ak1", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "cert-1", cert.ID)
}

func TestCertServiceVerifyLocksAfterRepeatedFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hashed, err := HashSecret("s3cret!")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT (.+) FROM certs WHERE rel_cert_conf_id").
			WillReturnRows(certRow("ak1", hashed, false))
	}

	store := NewStore(db)
	lockout := newTestLockoutTracker(t)
	svc := NewCertService(store, lockout, &fakeTokenRevoker{})
	cc := &CertConf{ID: "cc1", SKLockCycleSec: 60, SKLockErrTimes: 3}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Verify(ctx, cc, "ak1", "wrong")
		require.Error(t, err)
		assert.True(t, iamerrors.IsUnauthorized(err))
	}
	_, err = svc.Verify(ctx, cc, "ak1", "wrong")
	require.Error(t, err)
	assert.True(t, iamerrors.IsLocked(err))

	_, err = svc.Verify(ctx, cc, "ak1", "s3cret!")
	require.Error(t, err)
	assert.True(t, iamerrors.IsLocked(err), "subsequent attempts during the lock window should fail Locked even with the right secret")
}

func TestCertServiceVerifyExternalBypassesAKSK(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM certs WHERE rel_cert_conf_id").
		WillReturnRows(certRow("ak1", "", true))

	store := NewStore(db)
	lockout := newTestLockoutTracker(t)
	svc := NewCertService(store, lockout, &fakeTokenRevoker{})
	cc := &CertConf{ID: "cc1", SKLockCycleSec: 60, SKLockErrTimes: 5}

	cert, err := svc.Verify(context.Background(), cc, "ak1", "")
	require.NoError(t, err)
	assert.True(t, cert.IsExternal())
}

func TestCertServiceModifyRevokesTokensAndRejectsRepeat(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hashed, err := HashSecret("old-secret")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT hashed_sk FROM cert_sk_history").
		WillReturnRows(sqlmock.NewRows([]string{"hashed_sk"}))
	mock.ExpectQuery("SELECT (.+) FROM certs WHERE id").WillReturnRows(certRow("ak1", hashed, false))

	store := NewStore(db)
	lockout := newTestLockoutTracker(t)
	revoker := &fakeTokenRevoker{}
	svc := NewCertService(store, lockout, revoker)
	cc := &CertConf{ID: "cc1", Repeatable: false, RepeatableWindow: 3}

	err = svc.Modify(context.Background(), cc, "cert-1", "old-secret")
	require.Error(t, err)
	assert.True(t, iamerrors.IsPolicyViolation(err))
	assert.Empty(t, revoker.revokedOwners)
}

func TestCertServiceModifySucceedsWithNewSecret(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hashed, err := HashSecret("old-secret")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT hashed_sk FROM cert_sk_history").
		WillReturnRows(sqlmock.NewRows([]string{"hashed_sk"}))
	mock.ExpectQuery("SELECT (.+) FROM certs WHERE id").WillReturnRows(certRow("ak1", hashed, false))
	mock.ExpectExec("INSERT INTO cert_sk_history").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE certs SET sk").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	lockout := newTestLockoutTracker(t)
	revoker := &fakeTokenRevoker{}
	svc := NewCertService(store, lockout, revoker)
	cc := &CertConf{ID: "cc1", Repeatable: false, RepeatableWindow: 3}

	err = svc.Modify(context.Background(), cc, "cert-1", "brand-new-secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1"}, revoker.revokedOwners)
}
