package host

import (
	"bufio"
	"net"
	"os"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// harvestSSHConfig extracts concrete host aliases from an OpenSSH client
// config file. Patterns containing wildcards are skipped; they describe
// match rules, not addressable hosts. A missing file yields no candidates.
func harvestSSHConfig(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, h := range cfg.Hosts {
		for _, pattern := range h.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") {
				continue
			}
			names = append(names, alias)
		}
	}
	return names, nil
}

// harvestKnownHosts extracts hostnames from a known_hosts file: the first
// field of each non-comment line, split on commas, with any [host]:port
// brackets and port suffix stripped. Hashed entries (|1|...) are opaque and
// skipped.
func harvestKnownHosts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "|") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		// @cert-authority / @revoked marker lines carry the hosts in field 2.
		first := fields[0]
		if strings.HasPrefix(first, "@") {
			if len(fields) < 2 {
				continue
			}
			first = fields[1]
		}
		for _, entry := range strings.Split(first, ",") {
			name := stripPort(entry)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names, scanner.Err()
}

// harvestHostsFile extracts every name following the IP literal on each
// non-comment line of an /etc/hosts style file.
func harvestHostsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if net.ParseIP(fields[0]) == nil {
			continue
		}
		names = append(names, fields[1:]...)
	}
	return names, scanner.Err()
}

// stripPort removes [host]:port bracketing and a bare :port suffix from a
// known_hosts entry. Unbracketed entries with more than one colon are bare
// IPv6 addresses and carry no port.
func stripPort(entry string) string {
	if strings.HasPrefix(entry, "[") {
		if end := strings.Index(entry, "]"); end != -1 {
			return entry[1:end]
		}
	}
	if strings.Count(entry, ":") != 1 {
		return entry
	}
	idx := strings.LastIndex(entry, ":")
	if port := entry[idx+1:]; port != "" && strings.Trim(port, "0123456789") == "" {
		return entry[:idx]
	}
	return entry
}
