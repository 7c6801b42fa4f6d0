package build

import (
	"context"
	"os"

	"pkgmk/cli/command"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Options control the build pipeline.
type Options struct {
	Dir       string
	NoDeps    bool
	NoCheck   bool
	NoExtract bool
	Force     bool
}

// AddFlags registers the build pipeline flags.
func AddFlags(cmd *cobra.Command, opts *Options) {
	flags := cmd.Flags()
	command.AddDirFlag(flags, &opts.Dir)
	flags.BoolVarP(&opts.NoDeps, "nodeps", "d", false, "Skip all dependency checks")
	flags.BoolVar(&opts.NoCheck, "nocheck", false, "Do not run the check phase")
	flags.BoolVarP(&opts.NoExtract, "noextract", "e", false, "Reuse the existing $srcdir and skip prepare")
	flags.BoolVarP(&opts.Force, "force", "f", false, "Download sources even if they are already present")
}

func NewBuildCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "build [OPTIONS]",
		Short: "Fetch and verify the sources, then run prepare, build and check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := command.LoadWorkspace(pkgmkCli, opts.Dir)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), pkgmkCli, ws, opts)
		},
	}

	AddFlags(cmd, &opts)

	return cmd
}

// Run checks dependencies, prepares the sources and runs the prepare,
// build and check phases. prepare only runs on freshly staged sources.
func Run(ctx context.Context, pkgmkCli command.Cli, ws *command.Workspace, opts Options) error {
	if _, err := ws.Arch(); err != nil {
		return err
	}

	if !opts.NoDeps {
		if err := ws.CheckDependencies(ctx, pkgmkCli); err != nil {
			return err
		}
	}

	runner := ws.Runner(pkgmkCli)
	phases := []manifest.Phase{manifest.PhaseBuild}

	if opts.NoExtract {
		if _, err := os.Stat(ws.SrcDir()); err != nil {
			return errdefs.NotFound(errors.Wrap(err, "cannot reuse the source tree"))
		}
		pkgmkCli.Err().Warn("Using existing %s tree", ws.SrcDir())
	} else {
		cache, err := ws.Prepare(ctx, pkgmkCli, opts.Force)
		if err != nil {
			return err
		}
		if err := ws.StageSources(ctx, pkgmkCli, cache); err != nil {
			return err
		}
		phases = append([]manifest.Phase{manifest.PhasePrepare}, phases...)
	}

	if !opts.NoCheck {
		phases = append(phases, manifest.PhaseCheck)
	}

	for _, phase := range phases {
		if err := ws.RunPhase(ctx, pkgmkCli, runner, phase); err != nil {
			return err
		}
	}
	return nil
}
