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
	Register(&LoginCmd{})
	Register(&RegisterCmd{})
}

// LoginCmd implements the login command. --demo signs in against the
// offline mock backend instead of the real one.
type LoginCmd struct {
	password string
	demo     bool
}

func (c *LoginCmd) Name() string          { return "login" }
func (c *LoginCmd) Aliases() []string     { return nil }
func (c *LoginCmd) Synopsis() string      { return "Sign in" }
func (c *LoginCmd) Usage() string         { return "tasktrack login [--demo] --password <password> <email>" }
func (c *LoginCmd) Requires() Requirement { return NeedsApp }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
	fs.BoolVar(&c.demo, "demo", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	email, code := emailArg(args, errOut)
	if code != exitcode.Success {
		return code
	}

	signIn := a.Session.SignIn
	if c.demo {
		signIn = a.Session.SignInDemo
	}
	if err := signIn(ctx, email, c.password); err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	password string
}

func (c *RegisterCmd) Name() string          { return "register" }
func (c *RegisterCmd) Aliases() []string     { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string      { return "Create an account and sign in" }
func (c *RegisterCmd) Usage() string         { return "tasktrack register --password <password> <email>" }
func (c *RegisterCmd) Requires() Requirement { return NeedsApp }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	email, code := emailArg(args, errOut)
	if code != exitcode.Success {
		return code
	}
	if err := a.Session.Register(ctx, email, c.password); err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}

func emailArg(args []string, errOut io.Writer) (string, int) {
	switch len(args) {
	case 0:
		fmt.Fprintln(errOut, "error: email required")
		return "", exitcode.UserError
	case 1:
		return args[0], exitcode.Success
	}
	fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
	return "", exitcode.UserError
}
