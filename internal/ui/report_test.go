package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newReporter(quiet bool) (*Reporter, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &Reporter{Out: out, Err: errOut, Quiet: quiet}, out, errOut
}

func TestHostLabel(t *testing.T) {
	assert.Contains(t, HostLabel("web1"), "[web1]")
}

func TestReporterSuccess(t *testing.T) {
	r, out, errOut := newReporter(false)

	r.Success("web1", "ok")

	assert.Contains(t, out.String(), "[web1]")
	assert.Contains(t, out.String(), "ok")
	assert.Empty(t, errOut.String())
}

func TestReporterQuietSuppressesProgressAndSuccess(t *testing.T) {
	r, out, _ := newReporter(true)

	r.Progress("web1", "transferring")
	r.Success("web1", "ok")

	assert.Empty(t, out.String())
}

func TestReporterFailureAlwaysWritten(t *testing.T) {
	r, out, errOut := newReporter(true)

	r.Failure("web1", "transfer failed", "disk full\nno space")

	assert.Empty(t, out.String())
	text := errOut.String()
	assert.Contains(t, text, "[web1]")
	assert.Contains(t, text, "transfer failed")
	assert.Contains(t, text, "disk full")
	assert.Contains(t, text, "no space")
}

func TestReporterOutputLabelsEveryLine(t *testing.T) {
	r, out, _ := newReporter(false)

	r.Output("web1", "line one\nline two\n")

	text := out.String()
	assert.Contains(t, text, "[web1] line one")
	assert.Contains(t, text, "[web1] line two")
}

func TestReporterOutputSkipsEmpty(t *testing.T) {
	r, out, _ := newReporter(false)

	r.Output("web1", "\n")

	assert.Empty(t, out.String())
}
