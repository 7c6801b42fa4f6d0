package init

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pkgmk/cli/command"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type initOptions struct {
	dir       string
	template  string
	sourceURL string
	yes       bool
}

type prompt struct {
	Msg     string
	Default string
}

type promptField struct {
	Key    string
	Prompt prompt
}

func NewInitCommand(pkgmkCli command.Cli) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [OPTIONS]",
		Short: "Create a " + manifest.FileName + " from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), pkgmkCli, opts)
		},
	}

	flags := cmd.Flags()
	command.AddDirFlag(flags, &opts.dir)
	flags.StringVarP(&opts.template, "template", "t", manifest.TemplateJackDelayGUI, "Template to start from ("+strings.Join(templateNames(), ", ")+")")
	flags.StringVar(&opts.sourceURL, "source-url", "", "Base URL the template sources are fetched from")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Skip prompts and use default values")

	return cmd
}

func templateNames() []string {
	names := make([]string, 0, len(manifest.Templates))
	for name := range manifest.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runInit(ctx context.Context, pkgmkCli command.Cli, opts initOptions) error {
	newManifest, ok := manifest.Templates[opts.template]
	if !ok {
		return errdefs.InvalidParameter(errors.Errorf("unknown template %q, available: %s", opts.template, strings.Join(templateNames(), ", ")))
	}

	dir, err := command.ResolveStartDir(opts.dir)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(dir, manifest.FileName)
	if _, err := os.Stat(manifestPath); err == nil {
		return errors.Errorf("%s already exists in %s", manifest.FileName, dir)
	}

	m := newManifest(opts.sourceURL)

	// If not auto-confirmed, prompt the user for values
	if !opts.yes {
		prompts := []promptField{
			{"pkgname", prompt{"package name", m.Pkgname}},
			{"pkgver", prompt{"version", m.Pkgver}},
			{"pkgrel", prompt{"release", m.Pkgrel}},
		}

		for _, pf := range prompts {
			val, err := command.PromptForInput(ctx, pkgmkCli.In(), pkgmkCli.Out(), fmt.Sprintf("%s (%s): ", pf.Prompt.Msg, pf.Prompt.Default))
			if err != nil {
				return err
			}
			if val == "" {
				val = pf.Prompt.Default
			}

			switch pf.Key {
			case "pkgname":
				m.Pkgname = val
			case "pkgver":
				m.Pkgver = val
			case "pkgrel":
				m.Pkgrel = val
			}
		}
	}

	v, err := manifest.NewValidator()
	if err != nil {
		return err
	}
	if err := manifest.Validate(v, m); err != nil {
		return errdefs.InvalidParameter(err)
	}

	if !opts.yes {
		data, err := manifest.Encode(m, "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(pkgmkCli.Out(), "\nAbout to write to %s:\n\n%s\n", manifestPath, data)

		ok, err := command.PromptForConfirmation(ctx, pkgmkCli.In(), pkgmkCli.Out(), "Is this OK?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(pkgmkCli.Out(), "Aborted.")
			return nil
		}
	}

	if err := manifest.Write(m, dir); err != nil {
		return err
	}

	fmt.Fprint(pkgmkCli.Out(), "manifest created at ", manifestPath, "\n")

	return nil
}
