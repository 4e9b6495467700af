package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	rediscl "github.com/go-redis/redis/v8"
	"github.com/ironvault/sentryiam/pkg/authengine"
	"github.com/ironvault/sentryiam/pkg/cache"
	"github.com/ironvault/sentryiam/pkg/itemstore"
	"github.com/ironvault/sentryiam/pkg/relstore"
	"github.com/stretchr/testify/require"
)

func itemColumns() []string {
	return []string{"id", "code", "name", "kind", "domain_id", "scope_level", "own_paths", "owner", "disabled", "ext", "create_time", "update_time"}
}

func relColumns() []string {
	return []string{"id", "tag", "from_kind", "from_id", "to_item_id", "from_own_paths", "to_own_paths", "ext", "env", "create_time", "update_time"}
}

// newTestOrchestrator wires an Orchestrator whose db/rels and engine share
// the same sqlmock-backed *sql.DB, matching how a real deployment points
// both at the same Postgres connection pool.
func newTestOrchestrator(t *testing.T) (*Orchestrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisClient := cache.NewFromClient(rediscl.NewClient(&rediscl.Options{Addr: mr.Addr()}))

	authCache, err := authengine.NewCache(redisClient, 64)
	require.NoError(t, err)
	engine := authengine.NewEngine(itemstore.NewStore(db), relstore.NewStore(db), authCache)

	o := NewOrchestrator(db, relstore.NewStore(db), engine, nil, nil, nil)
	return o, mock
}

func TestOrchestratorBindRoleToResDirectAPI(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO rels").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM items WHERE id").
		WillReturnRows(sqlmock.NewRows(itemColumns()).AddRow(
			"api1", "1/GET/x", "API", string(itemstore.ResKindAPI), "dom1", 3, "t1/app1", "owner1", false,
			[]byte(`{"kind":"api","method":"GET","need_login":true}`), time.Now().UTC(), time.Now().UTC()))

	err := o.BindRoleToRes(ctx, "role1", "api1", "t1/app1", nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorUnbindRoleFromResDropsWithNoAlternatePath(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM rels").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM items WHERE id").
		WillReturnRows(sqlmock.NewRows(itemColumns()).AddRow(
			"api1", "1/GET/x", "API", string(itemstore.ResKindAPI), "dom1", 3, "t1/app1", "owner1", false,
			[]byte(`{"kind":"api","method":"GET","need_login":true}`), time.Now().UTC(), time.Now().UTC()))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM rels WHERE tag = \\$1 AND from_kind").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM rels WHERE from_kind").
		WillReturnRows(sqlmock.NewRows(relColumns()))

	err := o.UnbindRoleFromRes(ctx, "rel1", "role1", "api1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorBindAPIToUIResGrantsExistingRoles(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO rels").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM items WHERE id").
		WillReturnRows(sqlmock.NewRows(itemColumns()).AddRow(
			"api1", "1/GET/x", "API", string(itemstore.ResKindAPI), "dom1", 3, "t1/app1", "owner1", false,
			[]byte(`{"kind":"api","method":"GET","need_login":true}`), time.Now().UTC(), time.Now().UTC()))
	mock.ExpectQuery("FROM rels WHERE to_item_id").
		WillReturnRows(sqlmock.NewRows(relColumns()).AddRow(
			"rel1", "ResRole", "item", "role1", "menu1", "t1/app1", "t1/app1", []byte("{}"), []byte("[]"),
			time.Now().UTC(), time.Now().UTC()))

	err := o.BindAPIToUIRes(ctx, "api1", "menu1", "t1/app1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
