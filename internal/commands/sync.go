package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktrack/internal/app"
	"tasktrack/internal/config"
	"tasktrack/internal/exitcode"
)

func init() {
	Register(&SyncCmd{})
	Register(&ImportCmd{})
}

// SyncCmd pulls new tasks from the configured sync source.
type SyncCmd struct{}

func (c *SyncCmd) Name() string          { return "sync" }
func (c *SyncCmd) Aliases() []string     { return nil }
func (c *SyncCmd) Synopsis() string      { return "Fetch tasks from the sync source" }
func (c *SyncCmd) Usage() string         { return "tasktrack sync" }
func (c *SyncCmd) Requires() Requirement { return NeedsSession }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	n, err := a.Tasks.Sync(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "synced %d new tasks\n", n)
	}
	return exitcode.Success
}

// ImportCmd appends sample tasks from the demo-data API.
type ImportCmd struct{}

func (c *ImportCmd) Name() string          { return "import" }
func (c *ImportCmd) Aliases() []string     { return nil }
func (c *ImportCmd) Synopsis() string      { return "Import sample tasks" }
func (c *ImportCmd) Usage() string         { return "tasktrack import" }
func (c *ImportCmd) Requires() Requirement { return NeedsSession }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	n, err := a.Tasks.Import(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "imported %d tasks\n", n)
	}
	return exitcode.Success
}
