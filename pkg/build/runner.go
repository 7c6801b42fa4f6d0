// Package build runs the lifecycle phases of a manifest.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"

	"github.com/cli/safeexec"
	"github.com/docker/docker/errdefs"
	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// Dirs are the directories a build operates on.
type Dirs struct {
	StartDir string
	SrcDir   string
	PkgDir   string
}

type Options struct {
	Dirs Dirs
	// CArch is exported to steps as $CARCH. Defaults to the host
	// architecture in pacman naming.
	CArch string
	// Stdout and Stderr receive the output of command steps.
	Stdout io.Writer
	Stderr io.Writer
}

// StepError reports the failure of a single step.
type StepError struct {
	Phase manifest.Phase
	Index int
	Step  manifest.Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d (%s) failed: %v", e.Phase, e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Cause() error {
	return e.Err
}

type Runner struct {
	m      *manifest.Manifest
	dirs   Dirs
	carch  string
	stdout io.Writer
	stderr io.Writer
}

func NewRunner(m *manifest.Manifest, opts Options) *Runner {
	if opts.CArch == "" {
		opts.CArch = HostArch()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	return &Runner{
		m:      m,
		dirs:   opts.Dirs,
		carch:  opts.CArch,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
}

// HostArch returns the machine architecture in pacman naming.
func HostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	case "arm":
		return "armv7h"
	case "riscv64":
		return "riscv64"
	default:
		return runtime.GOARCH
	}
}

// Vars returns the variables steps can reference.
func (r *Runner) Vars() map[string]string {
	return map[string]string{
		"srcdir":   r.dirs.SrcDir,
		"pkgdir":   r.dirs.PkgDir,
		"startdir": r.dirs.StartDir,
		"pkgname":  r.m.Pkgname,
		"pkgver":   r.m.Pkgver,
		"pkgrel":   r.m.Pkgrel,
		"epoch":    fmt.Sprint(r.m.Epoch),
		"CARCH":    r.carch,
	}
}

// Expand replaces $var and ${var} in s with build variables, then extra,
// then the process environment.
func (r *Runner) Expand(s string, extra map[string]string) string {
	vars := r.Vars()
	return os.Expand(s, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		if v, ok := extra[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// RunPhase runs the steps of phase p in order and stops at the first
// failure.
func (r *Runner) RunPhase(ctx context.Context, p manifest.Phase) error {
	steps := r.m.Steps(p)
	if len(steps) == 0 {
		return nil
	}

	ctx = log.WithField(ctx, "phase", string(p))
	for i, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.G(ctx).WithField("step", i+1).Debugf("running %s", step)
		start := time.Now()

		var err error
		if step.Install != nil {
			err = r.install(ctx, step.Install)
		} else {
			err = r.run(ctx, step)
		}
		if err != nil {
			return &StepError{Phase: p, Index: i, Step: step, Err: err}
		}

		log.G(ctx).WithField("step", i+1).Debugf("finished in %s", time.Since(start).Round(time.Millisecond))
	}

	return nil
}

// Package resets $pkgdir and runs the package phase, so repeated runs
// produce the same tree.
func (r *Runner) Package(ctx context.Context) error {
	if err := ResetDir(r.dirs.PkgDir); err != nil {
		return errors.Wrap(err, "failed to reset package directory")
	}
	return r.RunPhase(ctx, manifest.PhasePackage)
}

// ResetDir removes dir and recreates it empty with mode 0755.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.Chmod(dir, 0755)
}

func (r *Runner) run(ctx context.Context, step manifest.Step) error {
	args, err := shlex.Split(step.Run)
	if err != nil {
		return errdefs.InvalidParameter(errors.Wrap(err, "cannot parse command"))
	}
	if len(args) == 0 {
		return errdefs.InvalidParameter(errors.New("empty command"))
	}

	extra := make(map[string]string, len(step.Env))
	for k, v := range step.Env {
		extra[k] = r.Expand(v, nil)
	}
	for i, arg := range args {
		args[i] = r.Expand(arg, extra)
	}

	name := args[0]
	if !strings.ContainsRune(name, filepath.Separator) && !strings.ContainsRune(name, '/') {
		path, err := safeexec.LookPath(name)
		if err != nil {
			return errdefs.NotFound(errors.Wrapf(err, "command %q not found", name))
		}
		name = path
	}

	workdir := r.dirs.SrcDir
	if step.Dir != "" {
		workdir = filepath.Join(r.dirs.SrcDir, r.Expand(step.Dir, extra))
	}

	cmd := exec.CommandContext(ctx, name, args[1:]...)
	cmd.Dir = workdir
	cmd.Env = r.environ(extra)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.WaitDelay = 5 * time.Second

	log.G(ctx).Debugf("(%s) %s", cmd.Dir, strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (r *Runner) environ(extra map[string]string) []string {
	env := os.Environ()

	vars := r.Vars()
	keys := make([]string, 0, len(vars)+len(extra))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}

	keys = keys[:0]
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env
}
