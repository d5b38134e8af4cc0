package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ibdshrink/internal/db"
	"ibdshrink/internal/fsutil"
	"ibdshrink/internal/shrink"
	"ibdshrink/internal/ui"
	"ibdshrink/pkg/config"
)

type options struct {
	configPath  string
	profile     string
	stage       int
	askPassword bool
	noColor     bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "ibdshrink",
	Short: "Shrink MySQL's ibdata1 by exporting and re-importing InnoDB tablespaces",
	Long: `ibdshrink shrinks MySQL's shared tablespace file (ibdata1) in two stages.

Stage 1 converts mysql/sys InnoDB tables to MyISAM, exports every other
InnoDB table's definition and tablespace files into the workdir, then drops
those tables. The operator then stops MySQL, deletes ibdata1 and ib_log*,
and restarts so the shared tablespace is recreated at its minimum size.
Stage 2 recreates the tables from the saved definitions and re-imports the
exported tablespaces.

The workdir is the only record of the dropped tables between the stages:
do not touch it until stage 2 has completed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "configuration file")
	rootCmd.Flags().StringVarP(&opts.profile, "profile", "p", "default", "profile to use in configuration file")
	rootCmd.Flags().IntVarP(&opts.stage, "stage", "s", 0, "stage of operation (1=export, 2=import)")
	rootCmd.Flags().BoolVarP(&opts.askPassword, "password", "P", false, "type db password interactively")
	rootCmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	rootCmd.MarkFlagRequired("config")
	rootCmd.MarkFlagRequired("stage")
}

// fatalError carries a fixed exit code for CLI-level validation failures.
type fatalError struct {
	code int
	msg  string
}

func (e *fatalError) Error() string { return e.msg }
func (e *fatalError) ExitCode() int { return e.code }

// exitCode maps typed failures to their process exit code.
func exitCode(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return 1
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	if opts.stage != 1 && opts.stage != 2 {
		return &fatalError{code: 2, msg: fmt.Sprintf("stage must be 1 (export) or 2 (import), got %d", opts.stage)}
	}
	if info, err := os.Stat(opts.configPath); err != nil || info.IsDir() {
		return &fatalError{code: 1, msg: fmt.Sprintf("file %s not found, aborting", opts.configPath)}
	}

	profile, err := config.Load(opts.configPath, opts.profile)
	if err != nil {
		return err
	}
	if info, err := os.Stat(profile.Workdir); err != nil || !info.IsDir() {
		return &fatalError{code: 3, msg: fmt.Sprintf("workdir defined as directory %s but it does not exist, aborting", profile.Workdir)}
	}
	if _, err := os.Stat(profile.Socket); err != nil {
		return &fatalError{code: 4, msg: fmt.Sprintf("database socket %s does not exist, aborting", profile.Socket)}
	}

	out := ui.New(opts.noColor)

	if opts.askPassword {
		out.Printf("Enter database password for %s profile: ", opts.profile)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		out.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		profile.Password = string(pw)
	}

	if opts.stage == 1 {
		return runStage1(ctx, profile, out)
	}
	return runStage2(ctx, profile, out)
}

// runStage1 inspects, asks the operator for confirmation, then exports.
// Inspect and Export each use their own session.
func runStage1(ctx context.Context, profile *config.Profile, out *ui.Printer) error {
	err := withSession(ctx, profile, func(sess *db.Session) error {
		r := &shrink.Runner{Sess: sess, Out: out, Workdir: profile.Workdir, UseHardlink: profile.UseHardlink}
		return r.Inspect(ctx)
	})
	if err != nil {
		return err
	}

	out.Warnf("\nMake sure to check the list above and ensure " +
		"there are no connections to this database during this procedure!\n")
	ok, err := confirm(os.Stdin, out)
	if err != nil {
		return err
	}
	if !ok {
		return declineStage1(profile.Workdir, out)
	}

	return withSession(ctx, profile, func(sess *db.Session) error {
		r := &shrink.Runner{Sess: sess, Out: out, Workdir: profile.Workdir, UseHardlink: profile.UseHardlink}
		return r.Export(ctx)
	})
}

// runStage2 imports directly: the destructive step already happened in
// stage 1, so there is nothing left to gate on.
func runStage2(ctx context.Context, profile *config.Profile, out *ui.Printer) error {
	return withSession(ctx, profile, func(sess *db.Session) error {
		r := &shrink.Runner{Sess: sess, Out: out, Workdir: profile.Workdir, UseHardlink: profile.UseHardlink}
		return r.Import(ctx)
	})
}

// declineStage1 undoes the inspection and exits cleanly. The inspector
// only wrote plain files into the workdir, so that is all there is to
// clean up.
func declineStage1(workdir string, out *ui.Printer) error {
	if err := fsutil.RemoveFiles(workdir); err != nil {
		return err
	}
	out.Println("Exiting now")
	return nil
}

func withSession(ctx context.Context, profile *config.Profile, fn func(*db.Session) error) error {
	sess, err := db.Open(ctx, profile.Socket, profile.User, profile.Password)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

// confirm asks until the answer is literally yes or no.
func confirm(in io.Reader, out *ui.Printer) (bool, error) {
	sc := bufio.NewScanner(in)
	for {
		out.Println("Do you want to proceed? Type yes or no")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return false, err
			}
			return false, fmt.Errorf("input closed before confirmation")
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
	}
}
