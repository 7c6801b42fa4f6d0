package commands

import (
	"pkgmk/cli/command"
	"pkgmk/cli/command/build"
	"pkgmk/cli/command/fetch"
	pmInit "pkgmk/cli/command/init"
	"pkgmk/cli/command/makepkg"
	"pkgmk/cli/command/pack"
	"pkgmk/cli/command/srcinfo"
	"pkgmk/cli/command/updsums"
	"pkgmk/cli/command/validate"

	"github.com/spf13/cobra"
)

func AddCommands(cmd *cobra.Command, pkgmkCli command.Cli) {
	cmd.AddCommand(
		pmInit.NewInitCommand(pkgmkCli),
		validate.NewValidateCommand(pkgmkCli),
		fetch.NewFetchCommand(pkgmkCli),
		build.NewBuildCommand(pkgmkCli),
		pack.NewPackageCommand(pkgmkCli),
		makepkg.NewMakepkgCommand(pkgmkCli),
		updsums.NewUpdsumsCommand(pkgmkCli),
		srcinfo.NewSrcinfoCommand(pkgmkCli),
	)
}
