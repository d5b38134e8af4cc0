package shrink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportRequiresStage1State(t *testing.T) {
	var tests = []struct {
		name string
		prep func(t *testing.T) string
	}{
		{"workdir missing", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "never-created")
		}},
		{"table lists missing", func(t *testing.T) string {
			return t.TempDir()
		}},
		{"apps list missing", func(t *testing.T) string {
			workdir := t.TempDir()
			require.NoError(t, writeTableList(filepath.Join(workdir, listSystemFile), nil))
			return workdir
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock, _ := newTestRunner(t, tt.prep(t), false)

			err := r.Import(context.Background())
			require.Error(t, err)

			var perr *PreconditionError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, 7, perr.ExitCode())
			assert.Contains(t, perr.Error(), "ensure stage 1 has been executed first")
			// no statement may run before the precondition check passes
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestImportHappyPath(t *testing.T) {
	system := []TableRef{{"mysql", "innodb_table_stats"}}
	apps := []TableRef{{"app", "orders"}}
	workdir := stage1Workdir(t, system, apps)

	// exported bundle from stage 1, with a multi-line saved definition
	bundle := filepath.Join(workdir, "app")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	ddl := "CREATE TABLE `orders` (\n  `id` int NOT NULL\n) ENGINE=InnoDB"
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "orders.createtable.sql"), []byte(ddl+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "orders.cfg"), []byte("cfg:app.orders"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "orders.ibd"), []byte("ibd:app.orders"), 0o640))

	// datadir after the recreate pass: schema directory exists, tablespace
	// files do not
	datadir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(datadir, "app"), 0o755))

	r, mock, _ := newTestRunner(t, workdir, false)

	expectDatadir(mock, datadir)
	expectExec(mock, stmtDisableFKChecks)
	expectExec(mock, "alter table `mysql`.`innodb_table_stats` engine=innodb")
	expectExec(mock, "use `app`")
	// saved definition lines are replayed joined by spaces
	expectExec(mock, "CREATE TABLE `orders` (   `id` int NOT NULL ) ENGINE=InnoDB")
	expectExec(mock, "alter table `app`.`orders` discard tablespace")
	expectExec(mock, "alter table `app`.`orders` import tablespace")

	require.NoError(t, r.Import(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	cfg, err := os.ReadFile(filepath.Join(datadir, "app", "orders.cfg"))
	require.NoError(t, err)
	assert.Equal(t, "cfg:app.orders", string(cfg))
	ibd, err := os.ReadFile(filepath.Join(datadir, "app", "orders.ibd"))
	require.NoError(t, err)
	assert.Equal(t, "ibd:app.orders", string(ibd))
}

func TestImportHardlinksDataFilesBack(t *testing.T) {
	apps := []TableRef{{"app", "orders"}}
	workdir := stage1Workdir(t, nil, apps)
	bundle := filepath.Join(workdir, "app")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "orders.createtable.sql"), []byte("CREATE TABLE `orders` (id int)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "orders.cfg"), []byte("cfg"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "orders.ibd"), []byte("ibd"), 0o640))

	datadir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(datadir, "app"), 0o755))

	r, mock, _ := newTestRunner(t, workdir, true)

	expectDatadir(mock, datadir)
	expectExec(mock, stmtDisableFKChecks)
	expectExec(mock, "use `app`")
	expectExec(mock, "CREATE TABLE `orders` (id int)")
	expectExec(mock, "alter table `app`.`orders` discard tablespace")
	expectExec(mock, "alter table `app`.`orders` import tablespace")

	require.NoError(t, r.Import(context.Background()))

	si, err := os.Stat(filepath.Join(bundle, "orders.ibd"))
	require.NoError(t, err)
	di, err := os.Stat(filepath.Join(datadir, "app", "orders.ibd"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(si, di), "expected the restored ibd to be a hardlink")
}

func TestExportImportRoundTripPreservesData(t *testing.T) {
	// export then import over the same workdir, with a simulated tablespace
	// reset in between, must land the original bytes back in the datadir
	apps := []TableRef{{"app", "orders"}}
	workdir := stage1Workdir(t, nil, apps)
	datadir := t.TempDir()
	cfgPath, ibdPath := tablespaceFiles(t, datadir, apps[0])

	ddl := "CREATE TABLE `orders` (id int)"

	r, mock, _ := newTestRunner(t, workdir, false)
	expectDatadir(mock, datadir)
	mock.ExpectQuery(regexp.QuoteMeta("show create table `app`.`orders`")).
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("orders", ddl))
	expectExec(mock, "flush tables `app`.`orders` for export")
	expectExec(mock, stmtDisableFKChecks)
	expectExec(mock, stmtUnlockTables)
	expectExec(mock, "drop table `app`.`orders`")
	require.NoError(t, r.Export(context.Background()))

	// the drop and the ibdata1 recreation wipe the datadir copies
	require.NoError(t, os.Remove(cfgPath))
	require.NoError(t, os.Remove(ibdPath))

	r2, mock2, _ := newTestRunner(t, workdir, false)
	expectDatadir(mock2, datadir)
	expectExec(mock2, stmtDisableFKChecks)
	expectExec(mock2, "use `app`")
	expectExec(mock2, ddl)
	expectExec(mock2, "alter table `app`.`orders` discard tablespace")
	expectExec(mock2, "alter table `app`.`orders` import tablespace")
	require.NoError(t, r2.Import(context.Background()))

	cfg, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "cfg:app.orders", string(cfg))
	ibd, err := os.ReadFile(ibdPath)
	require.NoError(t, err)
	assert.Equal(t, "ibd:app.orders", string(ibd))
}
