package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"qube/internal/config"
	"qube/internal/cube"
	"qube/internal/errors"
	"qube/internal/host"
	"qube/internal/logger"
	"qube/internal/runner"
	"qube/internal/script"
	"qube/internal/secret"
	"qube/internal/ui"
	"qube/internal/util"
	"qube/pkg/sshutil"
)

// runPipeline performs a full dispatch run: resolve hosts, validate and
// plan artifacts, decrypt secrets, assemble the composite script, and drive
// the runner across every host. All pre-flight failures abort before any
// host is contacted; per-host remote failures are reported by the runner
// and deliberately do not change the process exit code.
func runPipeline(cfg *config.RunConfig) error {
	log := logger.Default()

	hosts, err := host.NewResolver(cfg, log).ResolveAll(cfg.HostSpecs)
	if err != nil {
		return err
	}

	plan, err := cube.BuildPlan(cfg.Cubes, cfg.EnvScripts, config.EncryptedSuffix)
	if err != nil {
		return err
	}

	secrets := secret.NewManager(cfg.Passphrase, log)
	cleanupSecrets, err := secrets.PrepareRun(plan)
	if err != nil {
		return err
	}
	defer cleanupSecrets()

	text := script.Assemble(plan, cfg.Commands, cfg.BaseDir)

	workDir, err := os.MkdirTemp("", "qube-")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrUsage,
			"Couldn't create a local working directory", "")
	}
	defer os.RemoveAll(workDir)

	scriptPath := filepath.Join(workDir, config.ScriptName)
	if err := os.WriteFile(scriptPath, []byte(text), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrUsage,
			"Couldn't write the generated run script", "")
	}
	if _, err := script.WriteLibrary(workDir); err != nil {
		return errors.WrapWithCode(err, errors.ErrUsage,
			"Couldn't write the function library", "")
	}

	reporter := &ui.Reporter{Out: os.Stdout, Err: os.Stderr, Quiet: cfg.Quiet}
	dialer := func(h, u string) (sshutil.SSHClient, error) {
		return sshutil.Dial(h, u, cfg.ConnectTimeout)
	}

	results := runner.New(cfg, dialer, reporter, log).Run(hosts, plan, scriptPath)

	if cfg.KeepScript {
		kept := config.ScriptName
		if err := os.WriteFile(kept, []byte(text), 0o755); err != nil {
			log.Warn("couldn't keep run script at %s: %v", kept, err)
		} else if !cfg.Quiet {
			fmt.Printf("kept run script at ./%s\n", kept)
		}
	}

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}
	if !cfg.Quiet {
		fmt.Printf("%d %s, %d failed\n",
			len(results), util.Pluralize(len(results), "host", "hosts"), failed)
	}

	return nil
}

// secretOperation handles the standalone show/edit sub-operations. Both
// require exactly one -e argument and contact no hosts.
func secretOperation(cfg *config.RunConfig, op string) error {
	if len(cfg.EnvScripts) != 1 {
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("'%s' needs exactly one -e environment script", op),
			fmt.Sprintf("Example: qube -e secrets.env%s %s", config.EncryptedSuffix, op))
	}

	secrets := secret.NewManager(cfg.Passphrase, logger.Default())
	switch op {
	case "show":
		return secrets.Show(cfg.EnvScripts[0])
	case "edit":
		return secrets.Edit(cfg.EnvScripts[0])
	default:
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("Unknown sub-operation '%s'", op),
			"Supported sub-operations: show, edit.")
	}
}
