package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAck(t *testing.T) {
	assert.NoError(t, ParseAck("ok"))

	for _, line := range []string{"error", "no", "OK", "ok ", ""} {
		err := ParseAck(line)
		var ackErr *AckRejectedError
		require.ErrorAs(t, err, &ackErr, "line %q", line)
		assert.Equal(t, line, ackErr.Raw)
	}
}

func TestParseIndex(t *testing.T) {
	n, err := ParseIndex("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ParseIndex("04")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, line := range []string{"", "-1", "x", "1.5"} {
		_, err := ParseIndex(line)
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, "line %q", line)
	}
}

func TestTrimLine(t *testing.T) {
	assert.Equal(t, "ok", TrimLine([]byte("ok\r")))
	assert.Equal(t, "IGA 6", TrimLine([]byte("\nIGA 6\r")))
}

func TestParsePlain(t *testing.T) {
	s, err := ParsePlain("IGA 6-23")
	require.NoError(t, err)
	assert.Equal(t, "IGA 6-23", s)

	_, err = ParsePlain("")
	assert.Error(t, err)
}
