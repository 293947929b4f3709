package ui

import (
	"fmt"
	"io"
	"strings"
)

// Reporter writes colorized, host-labeled status lines. Quiet suppresses
// success and progress lines; errors are always written.
type Reporter struct {
	Out   io.Writer // success and progress lines
	Err   io.Writer // failure lines
	Quiet bool
}

// HostLabel formats a host name for line prefixes.
func HostLabel(host string) string {
	return hostStyle.Render("[" + host + "]")
}

// Progress writes a muted per-host progress line, e.g. during bootstrap.
func (r *Reporter) Progress(host, message string) {
	if r.Quiet {
		return
	}
	fmt.Fprintf(r.Out, "%s %s\n", HostLabel(host), mutedStyle.Render(message))
}

// Success writes a green per-host success line.
func (r *Reporter) Success(host, message string) {
	if r.Quiet {
		return
	}
	fmt.Fprintf(r.Out, "%s %s\n", HostLabel(host), successStyle.Render(message))
}

// Failure writes a red per-host failure line to the error stream, followed
// by the captured output when present.
func (r *Reporter) Failure(host, message, output string) {
	fmt.Fprintf(r.Err, "%s %s\n", HostLabel(host), errorStyle.Render("✗ "+message))
	if output = strings.TrimRight(output, "\n"); output != "" {
		for _, line := range strings.Split(output, "\n") {
			fmt.Fprintf(r.Err, "%s %s\n", HostLabel(host), line)
		}
	}
}

// Output writes captured remote output under the host's label.
func (r *Reporter) Output(host, output string) {
	if output = strings.TrimRight(output, "\n"); output == "" {
		return
	}
	for _, line := range strings.Split(output, "\n") {
		fmt.Fprintf(r.Out, "%s %s\n", HostLabel(host), line)
	}
}
