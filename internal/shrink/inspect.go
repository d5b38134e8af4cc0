package shrink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ibdshrink/internal/db"
	"ibdshrink/internal/fsutil"
	"ibdshrink/internal/ui"
)

// Runner executes one stage against one database session. A Runner is built
// per stage; sessions are never shared across stages.
type Runner struct {
	Sess        *db.Session
	Out         *ui.Printer
	Workdir     string
	UseHardlink bool
}

// datadir reads the server's data directory, with the trailing slash
// trimmed so it can be joined with schema/table paths.
func (r *Runner) datadir(ctx context.Context) (string, error) {
	rows, err := r.Sess.Query(ctx, qryDatadir)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || len(rows[0]) < 2 {
		return "", fmt.Errorf("server did not report a datadir")
	}
	return strings.TrimRight(rows[0][1], "/"), nil
}

func (r *Runner) queryTableList(ctx context.Context, query string) ([]TableRef, error) {
	rows, err := r.Sess.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	tables := make([]TableRef, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("catalog row has %d columns, want 2", len(row))
		}
		tables = append(tables, TableRef{Schema: row[0], Name: row[1]})
	}
	return tables, nil
}

// Inspect is stage 1a: safety checks, then enumeration of all InnoDB tables
// into the two workdir list files for operator review. It never mutates the
// database; a precondition failure happens before any file is written.
func (r *Runner) Inspect(ctx context.Context) error {
	datadir, err := r.datadir(ctx)
	if err != nil {
		return err
	}

	if r.UseHardlink {
		same, err := fsutil.SameFilesystem(datadir, r.Workdir)
		if err != nil {
			return &PreconditionError{Code: ExitPrecondition, Reason: err.Error()}
		}
		if !same {
			return &PreconditionError{
				Code: ExitPrecondition,
				Reason: fmt.Sprintf("use_hardlink was specified but MySQL datadir %s and workdir %s"+
					" do not live in the same filesystem, aborting", datadir, r.Workdir),
			}
		}
	}

	fpt, err := r.Sess.Query(ctx, qryFilePerTable)
	if err != nil {
		return err
	}
	if len(fpt) == 0 || len(fpt[0]) < 2 {
		return fmt.Errorf("server did not report innodb_file_per_table")
	}
	if v := fpt[0][1]; strings.EqualFold(v, "off") || v == "0" {
		return &PreconditionError{
			Code:   ExitPrecondition,
			Reason: "innodb_file_per_table not enabled in database, aborting",
		}
	}

	empty, err := fsutil.IsEmptyDir(r.Workdir)
	if err != nil {
		return &PreconditionError{Code: ExitPrecondition, Reason: err.Error()}
	}
	if !empty {
		return &PreconditionError{
			Code:   ExitPrecondition,
			Reason: fmt.Sprintf("workdir %s is not empty, delete content if you want to run stage 1 again", r.Workdir),
		}
	}

	system, err := r.queryTableList(ctx, qrySystemTables)
	if err != nil {
		return err
	}
	if err := writeTableList(filepath.Join(r.Workdir, listSystemFile), system); err != nil {
		return err
	}

	apps, err := r.queryTableList(ctx, qryAppTables)
	if err != nil {
		return err
	}
	if err := writeTableList(filepath.Join(r.Workdir, listAppsFile), apps); err != nil {
		return err
	}

	r.Out.Warnf("\nThe following tables will be converted from InnoDB to MyISAM:\n")
	r.Out.List(tableLines(system))
	r.Out.Warnf("\nThe following tables will be exported from database:\n")
	r.Out.List(tableLines(apps))
	return nil
}

func tableLines(tables []TableRef) []string {
	lines := make([]string, len(tables))
	for i, t := range tables {
		lines[i] = t.String()
	}
	return lines
}
