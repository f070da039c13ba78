package migration

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// CLI 将迁移操作格式化输出到终端
type CLI struct {
	migrator Migrator
	out      io.Writer
}

// NewCLI 创建迁移命令行
func NewCLI(migrator Migrator, out io.Writer) *CLI {
	return &CLI{migrator: migrator, out: out}
}

// Run 执行子命令：up | down | steps N | force N | version | status
func (c *CLI) Run(ctx context.Context, action string, args ...string) error {
	switch action {
	case "", "up":
		return c.afterward(ctx, "Migrations complete", c.migrator.Up(ctx))
	case "down":
		return c.afterward(ctx, "Rollback complete", c.migrator.Down(ctx))
	case "steps":
		n, err := intArg(action, args)
		if err != nil {
			return err
		}
		return c.afterward(ctx, "Steps complete", c.migrator.Steps(ctx, n))
	case "force":
		n, err := intArg(action, args)
		if err != nil {
			return err
		}
		if err := c.migrator.Force(ctx, n); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Version forced to %d\n", n)
		return nil
	case "version":
		return c.printVersion(ctx)
	case "status":
		return c.printStatus(ctx)
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

func intArg(action string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires exactly one integer argument", action)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", action, args[0])
	}
	return n, nil
}

func (c *CLI) afterward(ctx context.Context, msg string, opErr error) error {
	if opErr != nil {
		return opErr
	}
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s. Current version: %d\n", msg, info.CurrentVersion)
	return nil
}

func (c *CLI) printVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(c.out, "No migrations applied yet.")
		return nil
	}

	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	fmt.Fprintf(c.out, "Current version: %d%s\n", version, suffix)
	return nil
}

func (c *CLI) printStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.out, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	applied := 0
	for _, s := range statuses {
		state := "pending"
		switch {
		case s.Dirty:
			state = "dirty"
		case s.Applied:
			state = "applied"
		}
		if s.Applied {
			applied++
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, state)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\nTotal: %d, Applied: %d, Pending: %d\n", len(statuses), applied, len(statuses)-applied)
	return nil
}
