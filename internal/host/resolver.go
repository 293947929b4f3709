// Package host expands host specifications into concrete hostnames.
//
// A spec without a wildcard resolves to itself. A spec containing '*' is
// translated into a regular expression and matched against every hostname
// harvested from the configured sources (SSH config files, known-hosts
// files, and the system hosts file), in harvest order.
package host

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"qube/internal/config"
	"qube/internal/errors"
	"qube/internal/logger"
	"qube/internal/util"
)

// Wildcard is the pattern marker recognized in host specs.
const Wildcard = "*"

// Resolver expands host specs against harvested candidate hostnames.
// The harvest is computed lazily on first wildcard use and cached for the
// remainder of the run.
type Resolver struct {
	cfg *config.RunConfig
	log logger.Logger

	once       sync.Once
	candidates []string
}

// NewResolver creates a resolver over the harvest sources in cfg.
func NewResolver(cfg *config.RunConfig, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Noop()
	}
	return &Resolver{cfg: cfg, log: log}
}

// Resolve expands a single host spec. Literal specs resolve to themselves
// without touching the filesystem; wildcard specs match the full candidate
// string against the derived regex, preserving harvest order. Duplicates
// are allowed downstream, so none are removed here.
func (r *Resolver) Resolve(spec string) ([]string, error) {
	if !strings.Contains(spec, Wildcard) {
		return []string{spec}, nil
	}

	candidates := r.harvest()

	pattern, err := compileSpec(spec)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrResolve,
			fmt.Sprintf("Host pattern '%s' is not valid", spec),
			"Use a hostname with '*' as the only pattern character, like 'web*'.")
	}

	var matched []string
	for _, candidate := range candidates {
		if pattern.MatchString(candidate) {
			matched = append(matched, candidate)
		}
	}

	if len(matched) == 0 {
		return nil, errors.New(errors.ErrResolve,
			fmt.Sprintf("No hosts match '%s'", spec),
			fmt.Sprintf("Searched: %s", util.JoinOrNone(r.sourceSummary())))
	}

	r.log.Debug("resolved %s to %d hosts", spec, len(matched))
	return matched, nil
}

// ResolveAll expands every spec independently and concatenates the results
// in the order the specs were given. Any failure aborts the whole set.
func (r *Resolver) ResolveAll(specs []string) ([]string, error) {
	var hosts []string
	for _, spec := range specs {
		resolved, err := r.Resolve(spec)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, resolved...)
	}
	return hosts, nil
}

// harvest scans the configured sources once and caches the result.
// Unreadable sources are logged and skipped rather than failing the run.
func (r *Resolver) harvest() []string {
	r.once.Do(func() {
		for _, path := range r.cfg.SSHConfigs {
			names, err := harvestSSHConfig(path)
			if err != nil {
				r.log.Warn("skipping %s: %v", path, err)
				continue
			}
			r.candidates = append(r.candidates, names...)
		}
		for _, path := range r.cfg.KnownHostsList {
			names, err := harvestKnownHosts(path)
			if err != nil {
				r.log.Warn("skipping %s: %v", path, err)
				continue
			}
			r.candidates = append(r.candidates, names...)
		}
		if r.cfg.HostsFile != "" {
			names, err := harvestHostsFile(r.cfg.HostsFile)
			if err != nil {
				r.log.Warn("skipping %s: %v", r.cfg.HostsFile, err)
			} else {
				r.candidates = append(r.candidates, names...)
			}
		}
		r.log.Debug("harvested %d candidate hostnames", len(r.candidates))
	})
	return r.candidates
}

// sourceSummary lists the paths that were scanned, for error messages.
func (r *Resolver) sourceSummary() []string {
	var sources []string
	sources = append(sources, r.cfg.SSHConfigs...)
	sources = append(sources, r.cfg.KnownHostsList...)
	if r.cfg.HostsFile != "" {
		sources = append(sources, r.cfg.HostsFile)
	}
	return sources
}

// compileSpec translates a wildcard spec into an anchored regexp: every
// non-wildcard run is quoted literally and '*' becomes "match any sequence".
func compileSpec(spec string) (*regexp.Regexp, error) {
	parts := strings.Split(spec, Wildcard)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}
