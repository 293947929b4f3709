// Package runner drives the transfer/execute protocol across the resolved
// host set.
//
// Hosts are processed strictly sequentially, phase-major: every host is
// bootstrapped, then every host receives the upload set, then the composite
// script is executed on every host. A host that fails in one phase is
// reported immediately and skipped in later phases; it never aborts or
// masks the remaining hosts. The only state shared across hosts is the
// read-only plan and composite script.
package runner

import (
	"fmt"
	"path"
	"path/filepath"

	"qube/internal/config"
	"qube/internal/cube"
	"qube/internal/logger"
	"qube/internal/ui"
	"qube/internal/util"
	"qube/pkg/sshutil"
)

// Phase identifies where in the per-host state machine a result was produced.
type Phase string

const (
	PhaseConnect   Phase = "connect"
	PhaseBootstrap Phase = "bootstrap"
	PhaseTransfer  Phase = "transfer"
	PhaseExecute   Phase = "execute"
)

// Result is the outcome for a single host.
type Result struct {
	Host     string
	Phase    Phase // last phase reached
	ExitCode int   // exit status of the composite script, or of the failing step
	Output   string
	Err      error // transport-level error, if any
}

// Failed reports whether the host's run did not complete cleanly.
func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// Runner executes the assembled run against each host.
type Runner struct {
	cfg      *config.RunConfig
	dial     sshutil.Dialer
	reporter *ui.Reporter
	log      logger.Logger
}

// New creates a runner. The dialer is injectable so tests can supply mock
// clients.
func New(cfg *config.RunConfig, dial sshutil.Dialer, reporter *ui.Reporter, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Noop()
	}
	return &Runner{cfg: cfg, dial: dial, reporter: reporter, log: log}
}

// hostState tracks one host's connection and progress through the phases.
type hostState struct {
	host   string
	client sshutil.SSHClient
	result Result
	done   bool // a phase failed; skip the rest
}

// Run performs bootstrap, transfer, and execution for every host and
// returns per-host results in host order. scriptPath is the local path of
// the generated composite script.
func (r *Runner) Run(hosts []string, plan *cube.Plan, scriptPath string) []Result {
	states := make([]*hostState, len(hosts))
	for i, host := range hosts {
		states[i] = &hostState{host: host, result: Result{Host: host}}
	}
	defer func() {
		for _, s := range states {
			if s.client != nil {
				s.client.Close()
			}
		}
	}()

	r.connectAll(states)
	r.bootstrapAll(states)
	r.transferAll(states, plan, scriptPath)
	r.executeAll(states)

	results := make([]Result, len(states))
	for i, s := range states {
		results[i] = s.result
	}
	return results
}

// connectAll dials every host. A failed dial finishes that host's run.
func (r *Runner) connectAll(states []*hostState) {
	for _, s := range states {
		client, err := r.dial(s.host, r.cfg.User)
		if err != nil {
			s.fail(PhaseConnect, -1, "", err)
			r.reporter.Failure(s.host, "connection failed", err.Error())
			continue
		}
		s.client = client
		r.log.Debug("connected to %s (%s)", s.host, client.GetAddress())
	}
}

// bootstrapAll ensures the remote base directory exists and carries the
// current function library. Skipped entirely with --skip-bootstrap.
func (r *Runner) bootstrapAll(states []*hostState) {
	if r.cfg.SkipBootstrap {
		return
	}
	for _, s := range states {
		if s.done {
			continue
		}
		r.reporter.Progress(s.host, "preparing "+r.cfg.BaseDir)

		cmd := "mkdir -p " + util.ShellQuotePreserveTilde(r.cfg.BaseDir)
		stdout, stderr, exitCode, err := s.client.Exec(cmd)
		if err != nil || exitCode != 0 {
			s.fail(PhaseBootstrap, exitCode, string(stdout)+string(stderr), err)
			r.reporter.Failure(s.host, "bootstrap failed", s.result.Output)
			continue
		}
	}
}

// transferAll copies the upload set to each surviving host: the composite
// script, the function library (unless bootstrap was skipped), every cube,
// and every environment script plaintext.
func (r *Runner) transferAll(states []*hostState, plan *cube.Plan, scriptPath string) {
	for _, s := range states {
		if s.done {
			continue
		}
		r.reporter.Progress(s.host, "transferring artifacts")

		if err := r.transferHost(s.client, plan, scriptPath); err != nil {
			s.fail(PhaseTransfer, -1, "", err)
			r.reporter.Failure(s.host, "transfer failed", err.Error())
		}
	}
}

// transferHost uploads the full artifact set to one host.
func (r *Runner) transferHost(client sshutil.SSHClient, plan *cube.Plan, scriptPath string) error {
	base := r.cfg.BaseDir

	if !r.cfg.SkipBootstrap {
		libPath := filepath.Join(filepath.Dir(scriptPath), config.LibraryName)
		if err := client.Upload(libPath, base+"/"+config.LibraryName); err != nil {
			return err
		}
	}

	for _, c := range plan.Cubes {
		if c.Kind == cube.DirectoryCube {
			if err := client.UploadDir(c.LocalPath, base+"/"+c.Name); err != nil {
				return err
			}
			continue
		}
		if err := client.Upload(c.LocalPath, base+"/"+path.Base(c.RemoteScript())); err != nil {
			return err
		}
	}

	for _, env := range plan.EnvScripts {
		if err := client.Upload(env.LocalPath, base+"/"+env.RemoteName()); err != nil {
			return err
		}
	}

	return client.Upload(scriptPath, base+"/"+config.ScriptName)
}

// executeAll runs the composite script on each surviving host and reports
// the outcome. In debug mode every host's output is shown; otherwise only
// failures are.
func (r *Runner) executeAll(states []*hostState) {
	cmd := "bash " + util.ShellQuotePreserveTilde(r.cfg.BaseDir+"/"+config.ScriptName)

	for _, s := range states {
		if s.done {
			continue
		}
		r.reporter.Progress(s.host, "executing")

		stdout, stderr, exitCode, err := s.client.Exec(cmd)
		output := string(stdout) + string(stderr)
		s.result.Phase = PhaseExecute
		s.result.ExitCode = exitCode
		s.result.Output = output
		s.result.Err = err

		switch {
		case err != nil:
			r.reporter.Failure(s.host, "execution failed", err.Error())
		case exitCode != 0:
			r.reporter.Failure(s.host, fmt.Sprintf("exited with status %d", exitCode), output)
		default:
			r.reporter.Success(s.host, "ok")
			if r.cfg.Debug {
				r.reporter.Output(s.host, output)
			}
		}
	}
}

// fail records a phase failure and finishes the host's run.
func (s *hostState) fail(phase Phase, exitCode int, output string, err error) {
	s.result.Phase = phase
	s.result.ExitCode = exitCode
	s.result.Output = output
	s.result.Err = err
	if err == nil && exitCode != 0 {
		s.result.Err = fmt.Errorf("%s failed with status %d", phase, exitCode)
	}
	s.done = true
}
