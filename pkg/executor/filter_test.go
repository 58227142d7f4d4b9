package executor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upper(line []byte) (string, bool) {
	if bytes.HasPrefix(line, []byte("#")) {
		return "", false
	}
	return string(bytes.ToUpper(line)), true
}

func TestLineFilterSplitsAcrossWrites(t *testing.T) {
	var out bytes.Buffer
	f := newLineFilter(&out, upper)

	_, _ = f.Write([]byte("hel"))
	_, _ = f.Write([]byte("lo\n# hidden\n\nwor"))
	assert.Equal(t, "HELLO\n", out.String())

	require.NoError(t, f.Close())
	assert.Equal(t, "HELLO\nWORLD\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed terminal") }

func TestLineFilterSwallowsDestinationErrors(t *testing.T) {
	f := newLineFilter(failingWriter{}, upper)

	n, err := f.Write([]byte("one\ntwo\n"))
	assert.NoError(t, err, "the stream writer must keep going")
	assert.Equal(t, 8, n)
	assert.Error(t, f.Close())
}
