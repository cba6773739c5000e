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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. --undo reopens the tasks instead.
type DoneCmd struct {
	undo bool
}

func (c *DoneCmd) Name() string          { return "done" }
func (c *DoneCmd) Aliases() []string     { return nil }
func (c *DoneCmd) Synopsis() string      { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string         { return "tasktrack done [--undo] <ref>..." }
func (c *DoneCmd) Requires() Requirement { return NeedsSession }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.undo, "undo", false, "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	tasks, code := resolveRefs(a, args, errOut)
	if code != exitcode.Success {
		return code
	}

	completed := !c.undo
	for _, task := range tasks {
		if _, err := a.Tasks.Update(ctx, task.ID, service.UpdateTaskRequest{Completed: &completed}); err != nil {
			return fail(errOut, err)
		}
	}
	return ok(cfg, out)
}

// resolveRefs parses every ref in args against the current list order before
// anything is changed.
func resolveRefs(a *app.App, args []string, errOut io.Writer) ([]service.Task, int) {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.UserError
	}

	list := a.Tasks.List()
	out := make([]service.Task, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		task, err := ref.Resolve(list)
		if err != nil {
			return nil, fail(errOut, err)
		}
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		out = append(out, task)
	}
	return out, exitcode.Success
}
