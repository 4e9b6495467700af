package token

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	rediscl "github.com/go-redis/redis/v8"
	"github.com/ironvault/sentryiam/pkg/cache"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *cache.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return cache.NewFromClient(rediscl.NewClient(&rediscl.Options{Addr: mr.Addr()}))
}

func TestManagerCreateTokenEvictsOldestWhenAtCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tokens WHERE owner_id").
		WillReturnRows(sqlmock.NewRows(tokenColumns()).AddRow(
			"t-old", "acc-1", "password", "hash-old", "password_aaaaaaaa", "default",
			nil, nil, time.Now().UTC().Add(-time.Hour), nil))
	mock.ExpectExec("UPDATE tokens SET revoked_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db)
	mgr := NewManager(store, newTestCache(t))

	plaintext, rec, err := mgr.CreateToken(context.Background(), "acc-1", "password", "default", time.Hour, 1)
	require.NoError(t, err)
	require.NotEmpty(t, plaintext)
	require.NotEmpty(t, rec.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerValidateTokenCachesAfterStoreLookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	gen := NewGenerator()
	plaintext, hash, prefix, err := gen.Generate("password")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM tokens WHERE token_hash").
		WillReturnRows(sqlmock.NewRows(tokenColumns()).AddRow(
			"t1", "acc-1", "password", hash, prefix, "default", nil, nil, time.Now().UTC(), nil))
	mock.ExpectExec("UPDATE tokens SET last_used_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tokens SET last_used_at").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	mgr := NewManager(store, newTestCache(t))
	ctx := context.Background()

	tok, err := mgr.ValidateToken(ctx, plaintext)
	require.NoError(t, err)
	require.Equal(t, "t1", tok.ID)

	tok2, err := mgr.ValidateToken(ctx, plaintext)
	require.NoError(t, err)
	require.Equal(t, "t1", tok2.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerRevokeAllForOwnerClearsCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE tokens SET revoked_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token_hash"}).AddRow("t1", "hash1"))

	store := NewStore(db)
	mgr := NewManager(store, newTestCache(t))

	require.NoError(t, mgr.RevokeAllForOwner(context.Background(), "acc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
