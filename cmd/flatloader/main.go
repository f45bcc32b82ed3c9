// Command flatloader imports, updates or audits a table of rental listings
// from a CSV or XLSX export.
//
//	flatloader import  flats.xlsx --db-driver postgres --dry-run
//	flatloader update  flats.csv  --key name --failures-csv out/failed.csv
//	flatloader compare flats.xlsx --report-csv out/mismatches.csv
//
// Settings come from flags, then the environment, then a .env file in the
// working directory. See internal/config for the full list.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"flatloader/internal/config"
	"flatloader/internal/input"
	"flatloader/internal/storage"

	// register all backends with the storage factory.
	// --db-driver picks one at run time.
	_ "flatloader/internal/storage/all"
)

// deps holds the collaborators run needs from the outside world. Tests swap
// them for in-memory versions.
type deps struct {
	openStore func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	loadInput func(ctx context.Context, path string, opt input.Options) (*input.Input, error)
	stdout    io.Writer
	stderr    io.Writer
}

func defaultDeps() deps {
	return deps{
		openStore: storage.New,
		loadInput: input.Load,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fatalf("load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(defaultDeps(), os.Getenv).ExecuteContext(ctx)
	stop()
	if err != nil {
		fatalf("%v", err)
	}
}

// newRootCmd builds the command tree. All flags are persistent on the root
// so they can be given before or after the subcommand.
func newRootCmd(d deps, getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:           "flatloader",
		Short:         "Load rental listing spreadsheets into a SQL table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.stdout)
	root.SetErr(d.stderr)
	cfg := config.Bind(root.PersistentFlags(), getenv)

	for _, sub := range []struct {
		mode  config.Mode
		use   string
		short string
	}{
		{config.ModeInsert, "import <file>", "Insert every data row as a new table row"},
		{config.ModeUpdate, "update <file>", "Update existing table rows matched by the key field"},
		{config.ModeCompare, "compare <file>", "Report differences between the file and the table"},
	} {
		root.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg.Input = args[0]
				cfg.Mode = sub.mode
				return run(cmd.Context(), cfg, d)
			},
		})
	}
	return root
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "flatloader: "+format+"\n", a...)
	os.Exit(1)
}
