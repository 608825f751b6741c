package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"album=Greatest Hits", " track = x=y", "artist=null"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"album":  "Greatest Hits",
		"track":  " x=y",
		"artist": nil,
	}, values)

	_, err = parseAssignments([]string{"no-separator"})
	assert.Error(t, err)

	_, err = parseAssignments([]string{"=value"})
	assert.Error(t, err)
}

func Test_RootCommand_Help(t *testing.T) {
	root := NewRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "fetch")
	assert.Contains(t, out.String(), "history")
	assert.Contains(t, out.String(), "db")
}

func Test_FetchCommand_RequiresURL(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"fetch"})

	assert.Error(t, root.Execute())
}
