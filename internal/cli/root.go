// Package cli wires the qube command surface: the root run pipeline, the
// show/edit secret sub-operations, version, and shell completion.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qube/internal/config"
	"qube/internal/errors"
)

// Root command flags, accumulated into a RunConfig before the pipeline runs.
var (
	hostFlags      []string
	cubeFlags      []string
	envFlags       []string
	userFlag       string
	passphraseFlag string
	skipBootstrap  bool
	keepScript     bool
	debugFlag      bool
	quietFlag      bool
	connectTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "qube [flags] [command... | show | edit]",
	Short: "Dispatch scripts and commands across a host fleet",
	Long: `qube prepares a set of target hosts, transfers cubes (reusable script
packages) and environment scripts, assembles a single run script, and
executes it on each host over SSH, reporting per-host results.

Hosts may be literal names or wildcard patterns expanded against your SSH
config, known_hosts, and /etc/hosts.

Examples:
  qube -H web1 uptime
  qube -H 'web*' -c deploy
  qube -H db1 -e prod.env.enc -p secret -c migrate
  qube -e prod.env.enc show`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig(args)
		return dispatch(cfg, args)
	},
}

// buildConfig layers flag values over the viper/environment defaults.
func buildConfig(args []string) *config.RunConfig {
	cfg := config.Load()
	cfg.HostSpecs = hostFlags
	cfg.Cubes = cubeFlags
	cfg.EnvScripts = envFlags
	cfg.Passphrase = passphraseFlag
	cfg.SkipBootstrap = skipBootstrap
	cfg.KeepScript = keepScript
	cfg.Debug = debugFlag
	cfg.Quiet = quietFlag
	if userFlag != "" {
		cfg.User = userFlag
	}
	if connectTimeout > 0 {
		cfg.ConnectTimeout = connectTimeout
	}
	return cfg
}

// dispatch routes between the run pipeline and the standalone secret
// sub-operations. Sub-operations only exist when no hosts were given.
func dispatch(cfg *config.RunConfig, args []string) error {
	if len(cfg.HostSpecs) == 0 {
		if len(args) == 1 && (args[0] == "show" || args[0] == "edit") {
			return secretOperation(cfg, args[0])
		}
		return errors.New(errors.ErrUsage,
			"Nothing to do: no hosts and no sub-operation",
			"Pass -H to target hosts, or 'show'/'edit' with a single -e script.")
	}

	cfg.Commands = args
	if len(cfg.Cubes) == 0 && len(cfg.EnvScripts) == 0 && len(cfg.Commands) == 0 {
		return errors.New(errors.ErrUsage,
			"Nothing to run on the selected hosts",
			"Pass -c for cubes, -e for environment scripts, or trailing commands.")
	}

	return runPipeline(cfg)
}

func init() {
	flags := rootCmd.Flags()
	flags.StringArrayVarP(&hostFlags, "host", "H", nil, "target host or wildcard pattern (repeatable)")
	flags.StringArrayVarP(&cubeFlags, "cube", "c", nil, "cube script or directory (repeatable)")
	flags.StringArrayVarP(&envFlags, "env", "e", nil, "environment script, may end in .enc (repeatable)")
	flags.StringVarP(&userFlag, "user", "u", "", "remote user (default: current user)")
	flags.StringVarP(&passphraseFlag, "passphrase", "p", "", "passphrase for encrypted environment scripts")
	flags.BoolVarP(&skipBootstrap, "skip-bootstrap", "s", false, "assume the remote base directory exists")
	flags.BoolVarP(&keepScript, "keep-script", "k", false, "keep the generated run script locally")
	flags.BoolVarP(&debugFlag, "debug", "d", false, "report every host, not just failures")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-error output")
	flags.DurationVar(&connectTimeout, "connect-timeout", 0, "SSH dial timeout per host (default 5s)")
}

// Execute runs the root command and translates errors into process exit
// codes. Usage errors additionally show the help text.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *errors.ExitError
		if stderrors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		fmt.Fprintln(os.Stderr, err.Error())
		if errors.IsCode(err, errors.ErrUsage) {
			rootCmd.Usage() //nolint:errcheck // best-effort help on bad usage
		}
		os.Exit(1)
	}
}
