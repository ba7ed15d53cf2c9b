package transport

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUntilPromptCollectsLines(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("7E8 04 41 0C 1A F8\r\r>"))
	lines, err := readUntilPrompt(r, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"7E8 04 41 0C 1A F8"}, lines)
}

func TestReadUntilPromptMultipleLines(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("7E8 06 41 00 BE 7F B8\r7E9 06 41 00 80 00 00\r>"))
	lines, err := readUntilPrompt(r, time.Second)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestReadUntilPromptNoPromptButLinesSeen(t *testing.T) {
	// EOF with no closing '>' still returns whatever lines were seen, since
	// some adapter clones omit the prompt on certain error responses.
	r := bufio.NewReader(strings.NewReader("NO DATA\r"))
	lines, err := readUntilPrompt(r, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"NO DATA"}, lines)
}

func TestReadUntilPromptEmptyStreamErrors(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := readUntilPrompt(r, time.Second)
	assert.Error(t, err)
}
