// Package script builds the single composite script executed on each host.
//
// Assembly is two-phase: the inputs are first flattened into an ordered
// list of structured entries, then the entries are rendered to text. The
// ordering contract (all environment scripts, then all cubes, then inline
// commands) is a property of the entry list and can be tested without
// rendering.
package script

import (
	"path"
	"strings"

	"qube/internal/config"
	"qube/internal/cube"
	"qube/internal/util"
)

// EntryKind distinguishes the three sources of composite script content.
type EntryKind int

const (
	// EntryEnv sources an environment script in the base directory.
	EntryEnv EntryKind = iota
	// EntryCube sources a cube's entry script.
	EntryCube
	// EntryInline appends raw command text verbatim.
	EntryInline
)

// Entry is one ordered unit of the composite script.
type Entry struct {
	Kind       EntryKind
	Identifier string // env filename, cube name, or the raw inline text
	RemotePath string // path to source, relative to the base directory
	WorkDir    string // cube subdirectory relative to the base, "" otherwise

	// RemoveAfterSource marks decrypted environment scripts whose remote
	// copy must not outlive the single sourcing.
	RemoveAfterSource bool
}

// BuildEntries flattens the plan and inline commands into the mandated
// order: every environment script (input order), then every cube (input
// order), then one inline entry carrying the raw command text.
func BuildEntries(plan *cube.Plan, commands []string) []Entry {
	var entries []Entry

	for _, env := range plan.EnvScripts {
		entries = append(entries, Entry{
			Kind:              EntryEnv,
			Identifier:        env.RemoteName(),
			RemotePath:        env.RemoteName(),
			RemoveAfterSource: env.Encrypted,
		})
	}

	for _, c := range plan.Cubes {
		entries = append(entries, Entry{
			Kind:       EntryCube,
			Identifier: c.Name,
			RemotePath: c.RemoteScript(),
			WorkDir:    c.RemoteDir(),
		})
	}

	if len(commands) > 0 {
		entries = append(entries, Entry{
			Kind:       EntryInline,
			Identifier: strings.Join(commands, " "),
		})
	}

	return entries
}

// Render produces the composite script text for the given entries and
// remote base directory. Output is deterministic: identical entries always
// produce byte-identical text.
func Render(entries []Entry, baseDir string) string {
	var b strings.Builder
	quotedBase := util.ShellQuotePreserveTilde(baseDir)
	libPath := util.ShellQuotePreserveTilde(baseDir + "/" + config.LibraryName)

	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("# generated by qube\n\n")

	// Bootstrap: the function library must load before anything else runs.
	b.WriteString("if ! . " + libPath + "; then\n")
	b.WriteString("    echo 'qube: cannot source " + config.LibraryName + " from " + baseDir + "' >&2\n")
	b.WriteString("    exit 1\n")
	b.WriteString("fi\n\n")

	// Capture the initial working directory for later restoration.
	b.WriteString("__qube_initial_dir=\"$(pwd)\"\n")

	for _, e := range entries {
		switch e.Kind {
		case EntryEnv:
			quoted := util.ShellQuote("./" + e.RemotePath)
			b.WriteString("\n# env: " + e.Identifier + "\n")
			b.WriteString("cd " + quotedBase + " || qube_die \"cannot enter " + baseDir + "\"\n")
			b.WriteString(". " + quoted + " || qube_die \"environment script " + e.Identifier + " failed\"\n")
			if e.RemoveAfterSource {
				b.WriteString("rm -f -- " + quoted + "\n")
			}
		case EntryCube:
			dir := baseDir
			if e.WorkDir != "" {
				dir = baseDir + "/" + e.WorkDir
			}
			quotedDir := util.ShellQuotePreserveTilde(dir)
			quoted := util.ShellQuote("./" + path.Base(e.RemotePath))
			b.WriteString("\n# cube: " + e.Identifier + "\n")
			b.WriteString("cd " + quotedDir + " || qube_die \"cannot enter cube " + e.Identifier + "\"\n")
			b.WriteString(". " + quoted + " || qube_die \"cube " + e.Identifier + " failed\"\n")
			b.WriteString("cd \"$__qube_initial_dir\"\n")
		case EntryInline:
			b.WriteString("\n# inline commands\n")
			b.WriteString("cd \"$__qube_initial_dir\"\n")
			b.WriteString(e.Identifier)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Assemble is the convenience composition of BuildEntries and Render.
func Assemble(plan *cube.Plan, commands []string, baseDir string) string {
	return Render(BuildEntries(plan, commands), baseDir)
}
