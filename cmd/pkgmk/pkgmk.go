package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pkgmk/cli"
	"pkgmk/cli/command"
	"pkgmk/cli/command/commands"
	"pkgmk/cli/version"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Exit codes reported by pkgmk.
const (
	exitFailure     = 1
	exitUsage       = 2
	exitIntegrity   = 3
	exitNotFound    = 4
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pkgmkCli, err := command.NewPkgmkCli()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}

	if err := runPkgmk(ctx, pkgmkCli); err != nil {
		fmt.Fprintln(pkgmkCli.Err(), err)
		os.Exit(exitCode(ctx, err))
	}
}

func newPkgmkCommand(pkgmkCli *command.PkgmkCli) *cli.TopLevelCommand {
	cmd := &cobra.Command{
		Use:              "pkgmk [OPTIONS] COMMAND [ARG...]",
		Short:            "Build packages from a pkgmk.json manifest",
		SilenceUsage:     true,
		SilenceErrors:    true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return command.ShowHelp(pkgmkCli.Err())(cmd, args)
			}
			return errdefs.InvalidParameter(errors.Errorf("pkgmk: unknown command: pkgmk %s\n\nRun 'pkgmk --help' for more information", args[0]))
		},
		Version: fmt.Sprintf("%s, build %s (%s)", version.Version, version.GitCommit, version.BuildTime),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   false,
			HiddenDefaultCmd:    true,
			DisableDescriptions: true,
		},
	}

	opts, _ := cli.SetupRootCommand(cmd)
	cmd.Flags().BoolP("version", "v", false, "Print version information and quit")
	cmd.SetIn(pkgmkCli.In())
	cmd.SetOut(pkgmkCli.Out())
	cmd.SetErr(pkgmkCli.Err())

	commands.AddCommands(cmd, pkgmkCli)
	cli.DisableFlagsInUseLine(cmd)

	return cli.NewTopLevelCommand(cmd, pkgmkCli, opts, cmd.Flags())
}

func runPkgmk(ctx context.Context, pkgmkCli *command.PkgmkCli) error {
	return runTopLevel(ctx, newPkgmkCommand(pkgmkCli))
}

func runTopLevel(ctx context.Context, tcmd *cli.TopLevelCommand) error {
	cmd, args, err := tcmd.HandleGlobalFlags()
	if err != nil {
		return err
	}

	if err := tcmd.Initialize(); err != nil {
		return err
	}

	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// exitCode maps err to the process exit status.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return 0
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errdefs.IsCancelled(err):
		return exitInterrupted
	case errdefs.IsInvalidParameter(err):
		return exitUsage
	case errdefs.IsDataLoss(err):
		return exitIntegrity
	case errdefs.IsNotFound(err):
		return exitNotFound
	default:
		return exitFailure
	}
}
