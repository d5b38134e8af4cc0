package shrink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ibdshrink/internal/fsutil"
)

// Export is stage 1b. Every step runs as a full pass over the saved table
// lists and any failure aborts the run: the drop pass only starts once every
// exported file has been confirmed on disk.
func (r *Runner) Export(ctx context.Context) error {
	datadir, err := r.datadir(ctx)
	if err != nil {
		return err
	}

	system, err := readTableList(filepath.Join(r.Workdir, listSystemFile))
	if err != nil {
		return err
	}
	for _, t := range system {
		r.Out.Stepf("Converting table %s to MyISAM... ", t)
		if err := r.Sess.Exec(ctx, stmtAlterEngine(t, "myisam")); err != nil {
			return err
		}
		r.Out.OK()
	}

	apps, err := readTableList(filepath.Join(r.Workdir, listAppsFile))
	if err != nil {
		return err
	}
	for _, t := range apps {
		targetDir := filepath.Join(r.Workdir, t.Schema)
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", targetDir, err)
		}
		r.Out.Stepf("Export table definition for table %s ... ", t)
		rows, err := r.Sess.Query(ctx, qryShowCreate(t))
		if err != nil {
			return err
		}
		if len(rows) == 0 || len(rows[0]) < 2 {
			return fmt.Errorf("show create table %s returned no definition", t)
		}
		ddlPath := filepath.Join(targetDir, t.Name+".createtable.sql")
		if err := fsutil.WriteLines(ddlPath, []string{rows[0][1]}); err != nil {
			return err
		}
		r.Out.OK()
	}

	if len(apps) > 0 {
		r.Out.Stepf("\nFlushing tables for export... ")
		if err := r.Sess.Exec(ctx, stmtFlushForExport(apps)); err != nil {
			return err
		}
		r.Out.OK()
	}

	for _, t := range apps {
		targetDir := filepath.Join(r.Workdir, t.Schema)
		cfg := filepath.Join(datadir, t.Schema, t.Name+".cfg")
		ibd := filepath.Join(datadir, t.Schema, t.Name+".ibd")
		for _, f := range []string{cfg, ibd} {
			if _, err := os.Stat(f); err != nil {
				return &FileExpectationError{Path: f}
			}
		}

		r.Out.Stepf("Copying table cfg for %s in %s... ", t, targetDir)
		if err := fsutil.CopyPreserve(cfg, filepath.Join(targetDir, filepath.Base(cfg))); err != nil {
			return err
		}
		r.Out.OK()

		if r.UseHardlink {
			r.Out.Stepf("Creating hardlink for %s in %s... ", t, targetDir)
			if err := fsutil.Link(ibd, filepath.Join(targetDir, filepath.Base(ibd))); err != nil {
				return err
			}
		} else {
			r.Out.Stepf("Copying table ibd for %s in %s (can take some time)... ", t, targetDir)
			if err := fsutil.CopyPreserve(ibd, filepath.Join(targetDir, filepath.Base(ibd))); err != nil {
				return err
			}
		}
		r.Out.OK()
	}

	r.Out.Stepf("\nDisable foreign key checks for this session... ")
	if err := r.Sess.Exec(ctx, stmtDisableFKChecks); err != nil {
		return err
	}
	r.Out.OK()

	r.Out.Stepf("\nUnlock tables and prepare to drop them... ")
	if err := r.Sess.Exec(ctx, stmtUnlockTables); err != nil {
		return err
	}
	r.Out.OK()

	for _, t := range apps {
		r.Out.Stepf("Dropping table %s ... ", t)
		if err := r.Sess.Exec(ctx, stmtDropTable(t)); err != nil {
			return err
		}
		r.Out.OK()
	}

	r.Out.Warnf("\nAll the export steps have been executed.\n" +
		"You might want to doublecheck that no real InnoDB tables are left in your database.\n" +
		"Once this has been confirmed, stop your database and delete the ibdata1 and ib_log* files." +
		" Restart your database and ibdata1 will be re-created.\n" +
		"Last, run this tool again with --stage 2 to run the re-import of tablespaces.\n" +
		"Do NOT delete or alter the content of your workdir (or re-run --stage 1) until the re-import" +
		" has been done or data will be lost!\n")
	return nil
}
