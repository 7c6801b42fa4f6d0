package command

import (
	"io"

	"pkgmk/pkg/fetch"
	"pkgmk/pkg/streams"

	"github.com/moby/term"
)

// CLIOption is a functional argument to apply options to a [PkgmkCli]. These
// options can be passed to [NewPkgmkCli] to initialize a new CLI, or
// applied with [PkgmkCli.Initialize] or [PkgmkCli.Apply].
type CLIOption func(cli *PkgmkCli) error

// WithStandardStreams sets a cli in, out and err streams with the standard streams.
func WithStandardStreams() CLIOption {
	return func(cli *PkgmkCli) error {
		// Set terminal emulation based on platform as required.
		stdin, stdout, stderr := term.StdStreams()
		cli.in = streams.NewIn(stdin)
		cli.out = streams.NewOut(stdout)
		cli.err = streams.NewOut(stderr)
		return nil
	}
}

// WithCombinedStreams uses the same stream for the output and error streams.
func WithCombinedStreams(combined io.Writer) CLIOption {
	return func(cli *PkgmkCli) error {
		s := streams.NewOut(combined)
		cli.out = s
		cli.err = s
		return nil
	}
}

// WithInputStream sets a cli input stream.
func WithInputStream(in io.ReadCloser) CLIOption {
	return func(cli *PkgmkCli) error {
		cli.in = streams.NewIn(in)
		return nil
	}
}

// WithOutputStream sets a cli output stream.
func WithOutputStream(out io.Writer) CLIOption {
	return func(cli *PkgmkCli) error {
		cli.out = streams.NewOut(out)
		return nil
	}
}

// WithErrorStream sets a cli error stream.
func WithErrorStream(err io.Writer) CLIOption {
	return func(cli *PkgmkCli) error {
		cli.err = streams.NewOut(err)
		return nil
	}
}

// WithHTTPClient sets the client used to download sources.
func WithHTTPClient(client *fetch.Client) CLIOption {
	return func(cli *PkgmkCli) error {
		cli.httpClient = client
		return nil
	}
}
