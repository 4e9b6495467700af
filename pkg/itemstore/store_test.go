package itemstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ironvault/sentryiam/pkg/iamerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemColumns() []string {
	return []string{"id", "code", "name", "kind", "domain_id", "scope_level",
		"own_paths", "owner", "disabled", "ext", "create_time", "update_time"}
}

func TestStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO items").WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewStore(db)
	item := &Item{
		Code:       "admin",
		Name:       "Administrator",
		Kind:       KindRole,
		DomainID:   "tenant-1",
		ScopeLevel: ScopeTenant,
		OwnPaths:   "t1",
		Owner:      "acc-1",
	}

	err = store.Create(context.Background(), item)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.CreateTime.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO items").WillReturnError(pqUniqueViolation{})

	store := NewStore(db)
	item := &Item{Code: "admin", Kind: KindRole, DomainID: "tenant-1"}

	err = store.Create(context.Background(), item)
	require.Error(t, err)
	assert.True(t, iamerrors.IsConflict(err))
}

func TestStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(itemColumns()).AddRow(
		"item-1", "admin", "Administrator", "role", "tenant-1", 2,
		"t1", "acc-1", false, []byte(`{"kind":"tenant"}`), now, now)
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id = \\$1").WithArgs("item-1").WillReturnRows(rows)

	store := NewStore(db)
	item, err := store.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "admin", item.Code)
	assert.Equal(t, KindRole, item.Kind)
	assert.JSONEq(t, `{"kind":"tenant"}`, string(item.Ext))
}

func TestStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM items WHERE id = \\$1").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(itemColumns()))

	store := NewStore(db)
	_, err = store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, iamerrors.IsNotFound(err))
}

func TestStoreListByOwnPathsPrefix(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(itemColumns()).
		AddRow("item-1", "admin", "Administrator", "role", "t1", 2, "t1", "acc-1", false, []byte("{}"), now, now).
		AddRow("item-2", "viewer", "Viewer", "role", "t1", 2, "t1/a1", "acc-1", false, []byte("{}"), now, now)
	mock.ExpectQuery("SELECT (.+) FROM items WHERE").WithArgs("t1", "t1/%", "role").WillReturnRows(rows)

	store := NewStore(db)
	items, err := store.ListByOwnPathsPrefix(context.Background(), "t1", KindRole)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStoreUpdatePartial(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE items SET").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	disabled := true
	err = store.Update(context.Background(), "item-1", Update{Disabled: &disabled})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE items SET").WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	name := "renamed"
	err = store.Update(context.Background(), "missing", Update{Name: &name})
	require.Error(t, err)
	assert.True(t, iamerrors.IsNotFound(err))
}

func TestStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM items WHERE id = \\$1").WithArgs("item-1").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.Delete(context.Background(), "item-1"))
}

func TestStoreExtRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO items").WillReturnResult(sqlmock.NewResult(1, 1))

	ext, err := json.Marshal(RoleExt{Kind: RoleKindTenant, InBase: true})
	require.NoError(t, err)

	store := NewStore(db)
	item := &Item{Code: "member", Kind: KindRole, DomainID: "t1", Ext: ext}
	require.NoError(t, store.Create(context.Background(), item))

	var got RoleExt
	require.NoError(t, json.Unmarshal(item.Ext, &got))
	assert.Equal(t, RoleKindTenant, got.Kind)
}

// pqUniqueViolation stands in for lib/pq's *pq.Error with SQLSTATE 23505,
// without importing the driver into a unit test.
type pqUniqueViolation struct{}

func (pqUniqueViolation) Error() string    { return "duplicate key value violates unique constraint" }
func (pqUniqueViolation) SQLState() string { return "23505" }
