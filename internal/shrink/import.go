package shrink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ibdshrink/internal/fsutil"
)

// Import is stage 2. Each step is a distinct full pass over the table list:
// DDL recreation completes for all tables before any tablespace is
// discarded, and every file is copied back before any import runs.
func (r *Runner) Import(ctx context.Context) error {
	if info, err := os.Stat(r.Workdir); err != nil || !info.IsDir() {
		return &PreconditionError{
			Code:   ExitImportMissing,
			Reason: fmt.Sprintf("workdir %s not found, ensure stage 1 has been executed first", r.Workdir),
		}
	}
	for _, name := range []string{listSystemFile, listAppsFile} {
		if _, err := os.Stat(filepath.Join(r.Workdir, name)); err != nil {
			return &PreconditionError{
				Code:   ExitImportMissing,
				Reason: fmt.Sprintf("table list files not found in workdir %s , ensure stage 1 has been executed first", r.Workdir),
			}
		}
	}

	datadir, err := r.datadir(ctx)
	if err != nil {
		return err
	}

	r.Out.Stepf("\nDisable foreign key checks for this session... ")
	if err := r.Sess.Exec(ctx, stmtDisableFKChecks); err != nil {
		return err
	}
	r.Out.OK()

	system, err := readTableList(filepath.Join(r.Workdir, listSystemFile))
	if err != nil {
		return err
	}
	for _, t := range system {
		r.Out.Stepf("Converting back table %s to InnoDB... ", t)
		if err := r.Sess.Exec(ctx, stmtAlterEngine(t, "innodb")); err != nil {
			return err
		}
		r.Out.OK()
	}

	apps, err := readTableList(filepath.Join(r.Workdir, listAppsFile))
	if err != nil {
		return err
	}
	for _, t := range apps {
		r.Out.Stepf("Creating back table %s ... ", t)
		ddlPath := filepath.Join(r.Workdir, t.Schema, t.Name+".createtable.sql")
		lines, err := fsutil.ReadLines(ddlPath)
		if err != nil {
			return err
		}
		if err := r.Sess.Exec(ctx, stmtUseSchema(t.Schema)); err != nil {
			return err
		}
		if err := r.Sess.Exec(ctx, strings.Join(lines, " ")); err != nil {
			return err
		}
		r.Out.OK()
	}

	for _, t := range apps {
		r.Out.Stepf("Discarding new tablespace on table %s ... ", t)
		if err := r.Sess.Exec(ctx, stmtDiscardTablespace(t)); err != nil {
			return err
		}
		r.Out.OK()
	}

	for _, t := range apps {
		sourceDir := filepath.Join(r.Workdir, t.Schema)
		targetDir := filepath.Join(datadir, t.Schema)
		cfg := filepath.Join(sourceDir, t.Name+".cfg")
		ibd := filepath.Join(sourceDir, t.Name+".ibd")

		r.Out.Stepf("Copying back table cfg for %s in %s... ", t, targetDir)
		if err := fsutil.CopyPreserve(cfg, filepath.Join(targetDir, filepath.Base(cfg))); err != nil {
			return err
		}
		r.Out.OK()

		if r.UseHardlink {
			r.Out.Stepf("Creating back hardlink for %s in %s... ", t, targetDir)
			if err := fsutil.Link(ibd, filepath.Join(targetDir, filepath.Base(ibd))); err != nil {
				return err
			}
		} else {
			r.Out.Stepf("Copying back table ibd for %s in %s (can take some time)... ", t, targetDir)
			if err := fsutil.CopyPreserve(ibd, filepath.Join(targetDir, filepath.Base(ibd))); err != nil {
				return err
			}
		}
		r.Out.OK()
	}

	for _, t := range apps {
		r.Out.Stepf("Importing old tablespace on table %s ... ", t)
		if err := r.Sess.Exec(ctx, stmtImportTablespace(t)); err != nil {
			return err
		}
		r.Out.OK()
	}

	r.Out.Warnf("\nAll the import steps have been executed!\n"+
		"You might want to check that your InnoDB tables are back in place along with their data.\n"+
		"Once this has been confirmed, your workdir %s can be removed from system.\n", r.Workdir)
	return nil
}
