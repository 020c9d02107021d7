package cmd

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvisser/gitdeck/internal/buildinfo"
	"github.com/mvisser/gitdeck/internal/client"
	"github.com/mvisser/gitdeck/internal/store"
	"github.com/mvisser/gitdeck/internal/watch"
)

func Run() error {
	return run(os.Args[1:], os.Stdout)
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("gitdeck", flag.ContinueOnError)
	limit := fs.Int("limit", store.DefaultBatch, "number of commits to load per batch")
	native := fs.Bool("native", false, "use the pure-Go repository driver instead of the git executable")
	noWatch := fs.Bool("nowatch", false, "do not re-render when the repository changes")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintln(out, buildinfo.VersionWithRevision())
		return nil
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	repoPath := "."
	if remaining := fs.Args(); len(remaining) > 0 {
		repoPath = remaining[len(remaining)-1]
	}

	c, err := client.Open(repoPath, client.Options{Native: *native, Batch: *limit})
	if err != nil {
		return err
	}
	if _, err := c.Load(); err != nil {
		return err
	}
	if err := render(out, c); err != nil {
		return err
	}
	if *noWatch {
		return nil
	}

	w := watch.New(c.RepoPath(), func() {
		if _, err := c.Refresh(); err != nil {
			slog.Error("reload", slog.Any("error", err))
			return
		}
		if err := render(out, c); err != nil {
			slog.Error("render", slog.Any("error", err))
		}
	}, watch.Options{})
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}

func render(out io.Writer, c *client.Client) error {
	labels, err := c.BranchLabels()
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, renderGraph(c.Layout(), labels))
	return err
}
