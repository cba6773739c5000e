package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktrack/internal/app"
	"tasktrack/internal/config"
	"tasktrack/internal/exitcode"
	"tasktrack/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd changes the fields of one task. Only the flags given are sent.
type EditCmd struct {
	title optString
	desc  optString
	photo optString
	lat   optFloat
	lon   optFloat
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task" }
func (c *EditCmd) Usage() string {
	return "tasktrack edit [--title <t>] [--desc <text>] [--lat <n>] [--lon <n>] [--photo <uri>] <ref>"
}
func (c *EditCmd) Requires() Requirement { return NeedsSession }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	*c = EditCmd{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.desc, "desc", "")
	fs.Var(&c.photo, "photo", "")
	fs.Var(&c.lat, "lat", "")
	fs.Var(&c.lon, "lon", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	task, err := ref.Resolve(a.Tasks.List())
	if err != nil {
		return fail(errOut, err)
	}

	req := service.UpdateTaskRequest{
		Title:       c.title.v,
		Description: c.desc.v,
		PhotoURI:    c.photo.v,
	}
	if c.lat.v != nil || c.lon.v != nil {
		loc := service.Location{}
		if task.Location != nil {
			loc = *task.Location
		}
		if c.lat.v != nil {
			loc.Latitude = *c.lat.v
		}
		if c.lon.v != nil {
			loc.Longitude = *c.lon.v
		}
		req.Location = &loc
	}
	if req.Empty() {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	if _, err := a.Tasks.Update(ctx, task.ID, req); err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}
