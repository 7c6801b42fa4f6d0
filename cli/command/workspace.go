package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pkgmk/pkg/build"
	"pkgmk/pkg/config"
	"pkgmk/pkg/depcheck"
	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"
	"pkgmk/pkg/output"
	"pkgmk/pkg/pkginfo"
	"pkgmk/pkg/source"

	"github.com/docker/docker/errdefs"
	"github.com/docker/go-units"
	"github.com/morikuni/aec"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Workspace is a validated manifest together with the directories a build
// of it uses.
type Workspace struct {
	Manifest *manifest.Manifest
	Sources  []manifest.Source
	Dirs     config.Dirs
}

// AddDirFlag registers -C/--dir on flags.
func AddDirFlag(flags *pflag.FlagSet, dir *string) {
	flags.StringVarP(dir, "dir", "C", "", "Directory containing "+manifest.FileName+" (default: current directory)")
}

// ResolveStartDir returns the absolute manifest directory for the --dir
// flag value.
func ResolveStartDir(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "failed to get current working directory")
		}
		return cwd, nil
	}
	return filepath.Abs(dir)
}

// LoadWorkspace reads and validates the manifest in dir.
func LoadWorkspace(pkgmkCli Cli, dir string) (*Workspace, error) {
	startdir, err := ResolveStartDir(dir)
	if err != nil {
		return nil, err
	}

	m, err := manifest.ReadAndValidate(startdir)
	if err != nil {
		return nil, err
	}

	sources, err := m.Sources()
	if err != nil {
		return nil, errdefs.InvalidParameter(err)
	}

	return &Workspace{
		Manifest: m,
		Sources:  sources,
		Dirs:     config.ResolveDirs(pkgmkCli.ConfigFile(), startdir),
	}, nil
}

// SrcDir is $srcdir.
func (w *Workspace) SrcDir() string {
	return w.Dirs.SrcDir()
}

// PkgDir is $pkgdir.
func (w *Workspace) PkgDir() string {
	return w.Dirs.PkgDir(w.Manifest.Pkgname)
}

// SourceCache returns the source cache for the workspace.
func (w *Workspace) SourceCache(pkgmkCli Cli, force bool) (*source.Cache, error) {
	client, err := pkgmkCli.HTTPClient()
	if err != nil {
		return nil, err
	}

	return source.New(client, source.Options{
		SrcDest:     w.Dirs.SrcDest,
		StartDir:    w.Dirs.StartDir,
		Concurrency: pkgmkCli.ConfigFile().FetchConcurrency,
		Force:       force,
	}), nil
}

// Runner returns the phase runner for the workspace. Step output goes to
// the error stream so stdout stays clean.
func (w *Workspace) Runner(pkgmkCli Cli) *build.Runner {
	return build.NewRunner(w.Manifest, build.Options{
		Dirs: build.Dirs{
			StartDir: w.Dirs.StartDir,
			SrcDir:   w.SrcDir(),
			PkgDir:   w.PkgDir(),
		},
		Stdout: pkgmkCli.Err(),
		Stderr: pkgmkCli.Err(),
	})
}

// CheckDependencies verifies depends and makedepends are installed. A
// host without a dependency checker only gets a warning.
func (w *Workspace) CheckDependencies(ctx context.Context, pkgmkCli Cli) error {
	specs := append(append([]string{}, w.Manifest.Depends...), w.Manifest.Makedepends...)
	if len(specs) == 0 {
		return nil
	}

	pkgmkCli.Err().Step("Checking runtime and buildtime dependencies...")
	checker, err := depcheck.NewPacman()
	if err != nil {
		log.G(ctx).WithError(err).Debug("dependency check unavailable")
		pkgmkCli.Err().Warn("Cannot find a dependency checker; skipping dependency checks.")
		return nil
	}

	return checker.Check(ctx, specs)
}

// FetchSources downloads all sources and reports each one.
func (w *Workspace) FetchSources(ctx context.Context, pkgmkCli Cli, cache *source.Cache) error {
	pkgmkCli.Err().Step("Retrieving sources...")
	if len(w.Sources) == 0 {
		return nil
	}

	p := pkgmkCli.Progress()
	label := func(n int) string { return fmt.Sprintf("fetching %d source(s)", n) }
	p.StartProgressIndicatorWithLabel(label(len(w.Sources)), pkgmkCli.Err())
	defer p.StopProgressIndicator()

	results := make(chan source.Result)
	done := make(chan struct{})
	go func() {
		defer close(done)
		remaining := len(w.Sources)
		for res := range results {
			p.StopProgressIndicator()
			switch res.Status {
			case source.StatusCached:
				pkgmkCli.Err().SubStep("Found %s", res.Source.Name)
			case source.StatusLocal:
				pkgmkCli.Err().SubStep("Found %s (local)", res.Source.Name)
			default:
				pkgmkCli.Err().SubStep("Downloaded %s (%s)", res.Source.Name, units.HumanSize(float64(res.Size)))
			}
			remaining--
			if remaining > 0 {
				p.StartProgressIndicatorWithLabel(label(remaining), pkgmkCli.Err())
			}
		}
	}()

	err := cache.FetchAll(ctx, w.Sources, func(res source.Result) {
		results <- res
	})
	close(results)
	<-done

	return err
}

// VerifySources checks every declared checksum list and prints one line
// per source.
func (w *Workspace) VerifySources(pkgmkCli Cli, cache *source.Cache) error {
	algos := source.Algorithms(w.Manifest)
	if len(algos) == 0 {
		return nil
	}

	checks, err := cache.Verify(w.Sources, algos)

	for _, algo := range algos {
		pkgmkCli.Err().Step("Validating source files with %s...", algo.ListName())
		for _, c := range checks {
			if c.Algorithm != algo {
				continue
			}
			prefix := output.Text{Plain: "    " + c.Source.Name + " ... ", Fancy: "    " + c.Source.Name + " ... "}
			var status output.Text
			switch {
			case c.Skipped:
				status = output.Styled("Skipped", aec.YellowF)
			case c.Err != nil:
				status = output.Styled("FAILED", aec.RedF, aec.Bold)
			default:
				status = output.Styled("Passed", aec.GreenF)
			}
			pkgmkCli.Output().PrettyErrorln(output.Concat(prefix, status))
		}
	}

	return err
}

// StageSources extracts or links all sources into $srcdir.
func (w *Workspace) StageSources(ctx context.Context, pkgmkCli Cli, cache *source.Cache) error {
	pkgmkCli.Err().Step("Extracting sources...")
	return cache.Stage(ctx, w.Sources, w.SrcDir(), w.Manifest.Noextract)
}

// Prepare fetches, verifies and stages the sources.
func (w *Workspace) Prepare(ctx context.Context, pkgmkCli Cli, force bool) (*source.Cache, error) {
	cache, err := w.SourceCache(pkgmkCli, force)
	if err != nil {
		return nil, err
	}
	if err := w.FetchSources(ctx, pkgmkCli, cache); err != nil {
		return nil, err
	}
	if err := w.VerifySources(pkgmkCli, cache); err != nil {
		return nil, err
	}
	return cache, nil
}

// RunPhase runs one lifecycle phase when it has steps.
func (w *Workspace) RunPhase(ctx context.Context, pkgmkCli Cli, runner *build.Runner, phase manifest.Phase) error {
	if len(w.Manifest.Steps(phase)) == 0 {
		return nil
	}
	pkgmkCli.Err().Step("Starting %s()...", phase)
	return runner.RunPhase(ctx, phase)
}

// ListPackageFiles prints the files of $pkgdir in natural order.
func (w *Workspace) ListPackageFiles(pkgmkCli Cli) error {
	files, err := build.ListFiles(w.PkgDir())
	if err != nil {
		return err
	}

	var total int64
	for _, f := range files {
		total += f.Size
		fmt.Fprintf(pkgmkCli.Out(), "%s  %8s  %s\n", f.Mode.Perm(), units.HumanSize(float64(f.Size)), f.Path)
	}
	pkgmkCli.Err().SubStep("%d file(s), %s", len(files), units.HumanSize(float64(total)))
	return nil
}

// Arch returns the architecture the package is built for: "any" for
// architecture independent packages, else the host architecture, which
// must be listed in the manifest.
func (w *Workspace) Arch() (string, error) {
	host := build.HostArch()
	for _, a := range w.Manifest.Arch {
		if a == "any" {
			return "any", nil
		}
		if a == host {
			return host, nil
		}
	}
	return "", errdefs.InvalidParameter(errors.Errorf("%s is not available for the '%s' architecture", w.Manifest.Pkgname, host))
}

// CreateArchive packs $pkgdir into PKGDEST and reports the result.
func (w *Workspace) CreateArchive(ctx context.Context, pkgmkCli Cli) (*build.Artifact, error) {
	arch, err := w.Arch()
	if err != nil {
		return nil, err
	}

	pkgmkCli.Err().Step("Creating package %q...", w.Manifest.Pkgname)
	artifact, err := build.CreateArchive(ctx, w.Manifest, build.ArchiveOptions{
		PkgDir:   w.PkgDir(),
		PkgDest:  w.Dirs.PkgDest,
		Arch:     arch,
		Packager: config.Packager(pkgmkCli.ConfigFile()),
	})
	if err != nil {
		return nil, err
	}

	pkgmkCli.Err().SubStep("Generated %s", pkginfo.FileName)
	pkgmkCli.Err().SubStep("Compressed %s (%s)", filepath.Base(artifact.Path), units.HumanSize(float64(artifact.Size)))
	pkgmkCli.Err().SubStep("%s", artifact.Digest)
	return artifact, nil
}
