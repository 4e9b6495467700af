package token

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenColumns() []string {
	return []string{"id", "owner_id", "kind", "token_hash", "prefix", "name", "expires_at", "last_used_at", "create_time", "revoked_at"}
}

func TestStoreCreateAndGetByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM tokens WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(tokenColumns()).AddRow(
			"t1", "acc-1", "password", "hash1", "password_abcd1234", "default", nil, nil, time.Now().UTC(), nil))

	store := NewStore(db)
	tok := &Token{OwnerID: "acc-1", Kind: "password", TokenHash: "hash1", Prefix: "password_abcd1234", Name: "default"}
	require.NoError(t, store.Create(context.Background(), tok))
	assert.NotEmpty(t, tok.ID)

	got, err := store.GetByHash(context.Background(), "hash1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.OwnerID)
	assert.Nil(t, got.RevokedAt)
}

func TestStoreGetByHashNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tokens WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(tokenColumns()))

	store := NewStore(db)
	_, err = store.GetByHash(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, iamerrors.IsNotFound(err))
}

func TestStoreRevoke(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.Revoke(context.Background(), "t1", time.Now().UTC()))
}

func TestStoreRevokeNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.Revoke(context.Background(), "missing", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, iamerrors.IsNotFound(err))
}

func TestStoreRevokeAllForOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE tokens SET revoked_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token_hash"}).
			AddRow("t1", "hash1").AddRow("t2", "hash2"))

	store := NewStore(db)
	revoked, err := store.RevokeAllForOwner(context.Background(), "acc-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, revoked, 2)
}

func TestStoreDeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM tokens WHERE expires_at").WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewStore(db)
	n, err := store.DeleteExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
