package certconf

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateCertConf(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO cert_confs").WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db)
	cc := &CertConf{Kind: "password", RelItemID: "app-1", SKNeed: true, CoexistNum: 3}
	err = store.CreateCertConf(context.Background(), cc)
	require.NoError(t, err)
	assert.NotEmpty(t, cc.ID)
	assert.Equal(t, StatusEnabled, cc.Status)
}

func TestStoreCreateCertConfConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO cert_confs").WillReturnError(pqUniqueViolationErr{})

	store := NewStore(db)
	err = store.CreateCertConf(context.Background(), &CertConf{Kind: "password", RelItemID: "app-1"})
	require.Error(t, err)
	assert.True(t, iamerrors.IsConflict(err))
}

func TestStoreSetCertConfStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE cert_confs SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.SetCertConfStatus(context.Background(), "missing", StatusDisabled)
	require.Error(t, err)
	assert.True(t, iamerrors.IsNotFound(err))
}

func TestStoreCreateCert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO certs").WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db)
	cert := &Cert{AK: "ak1", SK: "hashed", Kind: "password", RelCertConfID: "cc1", RelKind: RelKindItem, RelID: "acc-1"}
	err = store.CreateCert(context.Background(), cert)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.ID)
}

func TestStoreRecordAndReadSKHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO cert_sk_history").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT hashed_sk FROM cert_sk_history").
		WillReturnRows(sqlmock.NewRows([]string{"hashed_sk"}).AddRow("h1").AddRow("h2"))

	store := NewStore(db)
	require.NoError(t, store.RecordSKHistory(context.Background(), "cert-1", "h1"))
	history, err := store.RecentSKs(context.Background(), "cert-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, history)
}

type pqUniqueViolationErr struct{}

func (pqUniqueViolationErr) Error() string    { return "duplicate key value violates unique constraint" }
func (pqUniqueViolationErr) SQLState() string { return "23505" }
