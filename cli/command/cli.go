package command

import (
	"io"

	"pkgmk/cli/debug"
	cliflags "pkgmk/cli/flags"
	"pkgmk/pkg/config"
	"pkgmk/pkg/config/configfile"
	"pkgmk/pkg/fetch"
	"pkgmk/pkg/output"
	"pkgmk/pkg/progress"
	"pkgmk/pkg/streams"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Streams is an interface which exposes the standard input and output streams
type Streams interface {
	In() *streams.In
	Out() *streams.Out
	Err() *streams.Out
}

// Cli represents the pkgmk command line client.
type Cli interface {
	Streams
	SetIn(in *streams.In)
	Apply(ops ...CLIOption) error
	ConfigFile() *configfile.ConfigFile
	Output() *output.Output
	Progress() *progress.Progress
	HTTPClient() (*fetch.Client, error)
}

// PkgmkCli is an instance the pkgmk command line client.
// Instances of the client can be returned from NewPkgmkCli.
type PkgmkCli struct {
	in         *streams.In
	out        *streams.Out
	err        *streams.Out
	configFile *configfile.ConfigFile
	output     *output.Output
	progress   *progress.Progress
	httpClient *fetch.Client
}

// NewPkgmkCli returns a PkgmkCli instance with all operators applied on it.
// It applies by default the standard streams.
func NewPkgmkCli(ops ...CLIOption) (*PkgmkCli, error) {
	defaultOps := []CLIOption{
		WithStandardStreams(),
	}
	ops = append(defaultOps, ops...)

	cli := &PkgmkCli{}
	if err := cli.Apply(ops...); err != nil {
		return nil, err
	}
	return cli, nil
}

// Out returns the writer used for stdout
func (cli *PkgmkCli) Out() *streams.Out {
	return cli.out
}

// Err returns the writer used for stderr
func (cli *PkgmkCli) Err() *streams.Out {
	return cli.err
}

// SetIn sets the reader used for stdin
func (cli *PkgmkCli) SetIn(in *streams.In) {
	cli.in = in
}

// In returns the reader used for stdin
func (cli *PkgmkCli) In() *streams.In {
	return cli.in
}

// ShowHelp shows the command help.
func ShowHelp(err io.Writer) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SetOut(err)
		cmd.HelpFunc()(cmd, args)
		return nil
	}
}

// Apply all the operation on the cli
func (cli *PkgmkCli) Apply(ops ...CLIOption) error {
	for _, op := range ops {
		if err := op(cli); err != nil {
			return err
		}
	}
	return nil
}

// ConfigFile returns the ConfigFile
func (cli *PkgmkCli) ConfigFile() *configfile.ConfigFile {
	// commands run in tests may skip Initialize
	if cli.configFile == nil {
		cli.configFile = config.LoadDefaultConfigFile(cli.err)
	}
	return cli.configFile
}

// Output returns the printer for messages with plain and colored forms.
func (cli *PkgmkCli) Output() *output.Output {
	if cli.output == nil {
		cli.output = output.New(cli.out, cli.err)
	}
	return cli.output
}

// Progress returns the spinner shown on the error stream.
func (cli *PkgmkCli) Progress() *progress.Progress {
	if cli.progress == nil {
		cli.progress = &progress.Progress{
			ProgressColorEnabled:     cli.err.IsColorEnabled(),
			ProgressIndicatorEnabled: cli.err.IsTerminal() && !debug.IsEnabled(),
		}
	}
	return cli.progress
}

// HTTPClient returns the client used to download sources, configured from
// the config file.
func (cli *PkgmkCli) HTTPClient() (*fetch.Client, error) {
	if cli.httpClient != nil {
		return cli.httpClient, nil
	}

	timeout, err := cli.ConfigFile().Timeout()
	if err != nil {
		return nil, err
	}

	cli.httpClient = fetch.NewClient(fetch.ClientOptions{
		Log:         cli.err,
		LogColorize: cli.err.IsColorEnabled(),
		Timeout:     timeout,
	})
	return cli.httpClient, nil
}

// Initialize the pkgmkCli runs initialization that must happen after command
// line flags are parsed.
func (cli *PkgmkCli) Initialize(opts *cliflags.ClientOptions, ops ...CLIOption) error {
	for _, o := range ops {
		if err := o(cli); err != nil {
			return err
		}
	}
	cliflags.SetLogLevel(opts.LogLevel)
	logrus.SetOutput(cli.err)

	if opts.ConfigDir != "" {
		config.SetDir(opts.ConfigDir)
	}

	if opts.Debug {
		debug.Enable()
	}

	cli.configFile = config.LoadDefaultConfigFile(cli.err)

	return nil
}
