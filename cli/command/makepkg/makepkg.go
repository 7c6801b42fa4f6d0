package makepkg

import (
	"context"
	"time"

	"pkgmk/cli/command"
	buildcmd "pkgmk/cli/command/build"
	"pkgmk/cli/command/pack"

	"github.com/spf13/cobra"
	"github.com/thlib/go-timezone-local/tzlocal"
)

type makepkgOptions struct {
	build     buildcmd.Options
	noArchive bool
}

func NewMakepkgCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts makepkgOptions

	cmd := &cobra.Command{
		Use:   "makepkg [OPTIONS]",
		Short: "Build the package from scratch: fetch, verify, build, package and archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMakepkg(cmd.Context(), pkgmkCli, opts)
		},
	}

	buildcmd.AddFlags(cmd, &opts.build)
	cmd.Flags().BoolVar(&opts.noArchive, "no-archive", false, "Stop after the package phase")

	return cmd
}

func runMakepkg(ctx context.Context, pkgmkCli command.Cli, opts makepkgOptions) error {
	ws, err := command.LoadWorkspace(pkgmkCli, opts.build.Dir)
	if err != nil {
		return err
	}

	pkgmkCli.Err().Step("Making package: %s %s (%s)", ws.Manifest.Pkgname, ws.Manifest.FullVersion(), timestamp(time.Now()))

	if err := buildcmd.Run(ctx, pkgmkCli, ws, opts.build); err != nil {
		return err
	}
	if err := pack.Run(ctx, pkgmkCli, ws, !opts.noArchive); err != nil {
		return err
	}

	pkgmkCli.Err().Step("Finished making: %s %s (%s)", ws.Manifest.Pkgname, ws.Manifest.FullVersion(), timestamp(time.Now()))
	return nil
}

// timestamp formats t in the local time zone, named by its IANA name when
// the host reports one.
func timestamp(t time.Time) string {
	if tz, err := tzlocal.RuntimeTZ(); err == nil && tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return t.In(loc).Format("Mon Jan _2 15:04:05 2006") + " " + tz
		}
	}
	return t.Format("Mon Jan _2 15:04:05 MST 2006")
}
