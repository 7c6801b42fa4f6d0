package updsums

import (
	"context"

	"pkgmk/cli/command"
	"pkgmk/pkg/checksum"
	"pkgmk/pkg/manifest"

	"github.com/spf13/cobra"
)

type updsumsOptions struct {
	dir   string
	force bool
}

func NewUpdsumsCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts updsumsOptions

	cmd := &cobra.Command{
		Use:   "updsums [OPTIONS]",
		Short: "Update the checksums of " + manifest.FileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdsums(cmd.Context(), pkgmkCli, opts)
		},
	}

	flags := cmd.Flags()
	command.AddDirFlag(flags, &opts.dir)
	flags.BoolVarP(&opts.force, "force", "f", false, "Download sources even if they are already present")

	return cmd
}

func runUpdsums(ctx context.Context, pkgmkCli command.Cli, opts updsumsOptions) error {
	ws, err := command.LoadWorkspace(pkgmkCli, opts.dir)
	if err != nil {
		return err
	}

	cache, err := ws.SourceCache(pkgmkCli, opts.force)
	if err != nil {
		return err
	}
	if err := ws.FetchSources(ctx, pkgmkCli, cache); err != nil {
		return err
	}

	m := ws.Manifest
	algos := []checksum.Algorithm{checksum.MD5}
	if len(m.Sha256sums) > 0 {
		algos = append(algos, checksum.SHA256)
	}

	pkgmkCli.Err().Step("Generating checksums for source files...")
	for _, algo := range algos {
		var sums []string
		err := pkgmkCli.Progress().RunWithProgress("computing "+algo.ListName(), func() error {
			var err error
			sums, err = cache.Sums(ws.Sources, algo)
			return err
		}, pkgmkCli.Err())
		if err != nil {
			return err
		}

		switch algo {
		case checksum.MD5:
			m.Md5sums = sums
		case checksum.SHA256:
			m.Sha256sums = sums
		}
	}

	if err := manifest.Write(m, ws.Dirs.StartDir); err != nil {
		return err
	}

	pkgmkCli.Err().SubStep("Updated %s", manifest.FileName)
	return nil
}
