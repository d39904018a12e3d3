package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"migrate", "create-staff", "create-persona", "create-user", "issue-invitation", "grant-credits"} {
		require.True(t, names[want], want)
	}
}

func TestCommandsRequirePostgres(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"grant-credits", "--user-id", "1", "--amount", "5"})
	err := root.Execute()
	require.ErrorContains(t, err, "POSTGRES_DSN")
}
