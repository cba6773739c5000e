package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasktrack/internal/app"
	"tasktrack/internal/config"
	"tasktrack/internal/exitcode"
	"tasktrack/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc  string
	photo string
	lat   optFloat
	lon   optFloat
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasktrack add [--desc <text>] [--lat <n> --lon <n>] [--photo <uri>] <title...>"
}
func (c *AddCmd) Requires() Requirement { return NeedsSession }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	c.lat, c.lon = optFloat{}, optFloat{}
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.photo, "photo", "", "")
	fs.Var(&c.lat, "lat", "")
	fs.Var(&c.lon, "lon", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	_, err := a.Tasks.Add(ctx, service.CreateTaskRequest{
		Title:       title,
		Description: c.desc,
		Latitude:    c.lat.v,
		Longitude:   c.lon.v,
		PhotoURI:    c.photo,
	})
	if err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}
