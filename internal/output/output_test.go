package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_PlainModeHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithColor(&buf, false)

	w.Header("Results")
	w.Successf("added id:%d", 3)
	w.Warningf("skipped %s", "dup.txt")
	w.Errorf("failed: %v", "boom")
	w.Field("title", "Quantum Measurement")
	w.Newline()

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "plain mode must not emit ANSI escapes")
	assert.Contains(t, out, "Results\n")
	assert.Contains(t, out, "added id:3\n")
	assert.Contains(t, out, "title: Quantum Measurement\n")
}

func TestWriter_NonFileWriterDisablesColor(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Successf("ok")
	assert.Equal(t, "ok\n", buf.String())
}

func TestWriter_FieldAlignment(t *testing.T) {
	var buf bytes.Buffer
	w := NewWithColor(&buf, false)

	w.Field("year", "2021")
	w.Field("tags", "physics to-read")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{"year: 2021", "tags: physics to-read"}, lines)
}
