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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string          { return "help" }
func (c *HelpCmd) Aliases() []string     { return nil }
func (c *HelpCmd) Synopsis() string      { return "Print usage" }
func (c *HelpCmd) Usage() string         { return "tasktrack help" }
func (c *HelpCmd) Requires() Requirement { return NeedsConfig }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, _ *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasktrack                                         List tasks
  tasktrack list [common flags] [--long]
  tasktrack add [common flags] [--desc <text>] [--lat <n> --lon <n>] [--photo <uri>] <title...>
  tasktrack done [common flags] [--undo] <ref>...
  tasktrack edit [common flags] [--title <t>] [--desc <text>] [--lat <n>] [--lon <n>] [--photo <uri>] <ref>
  tasktrack rm [common flags] <ref>...
  tasktrack sync [common flags]
  tasktrack import [common flags]
  tasktrack login [common flags] [--demo] --password <password> <email>
  tasktrack register [common flags] --password <password> <email>
  tasktrack logout [common flags]
  tasktrack whoami [common flags]
  tasktrack link-google [common flags] [--unlink]
  tasktrack help
  tasktrack version

<ref> is the task number shown by list, or a task id.
Tasks marked * have not been acknowledged by the backend yet.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
