package orchestrator

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestOrchestratorTransferAppOwnershipRejectsLastAdminRemoval(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner, own_paths FROM items WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"owner", "own_paths"}).AddRow("old-owner", "t1/app1"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM rels WHERE tag = 'AccountRole' AND to_item_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := o.TransferAppOwnership(ctx, TransferAppOwnershipRequest{
		AppID: "app1", NewOwnerID: "new-owner", AdminRoleID: "role1",
		RebindAdminRole: false, RemoveOldOwner: true,
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorTransferAppOwnershipRebindsAndRemovesOldOwner(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner, own_paths FROM items WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"owner", "own_paths"}).AddRow("old-owner", "t1/app1"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM rels WHERE tag = 'AccountRole' AND to_item_id").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT count\\(\\*\\) > 0 FROM rels WHERE tag = 'AccountRole' AND from_id").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO rels").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM rels WHERE tag = 'AccountRole'").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM rels WHERE tag = 'AccountApp'").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE items SET owner").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := o.TransferAppOwnership(ctx, TransferAppOwnershipRequest{
		AppID: "app1", NewOwnerID: "new-owner", AdminRoleID: "role1",
		RebindAdminRole: true, RemoveOldOwner: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorTransferAppOwnershipAppNotFound(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner, own_paths FROM items WHERE id").WillReturnRows(sqlmock.NewRows([]string{"owner", "own_paths"}))
	mock.ExpectRollback()

	err := o.TransferAppOwnership(ctx, TransferAppOwnershipRequest{AppID: "missing", NewOwnerID: "x"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
