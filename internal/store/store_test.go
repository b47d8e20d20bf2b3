package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/agentmux/internal/agent"
	"github.com/Iron-Ham/agentmux/internal/layout"
	"github.com/Iron-Ham/agentmux/internal/session"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Sessions: []session.Session{
			{
				ID:            "s1",
				DisplayName:   "api work",
				Agent:         agent.Ref{BaseID: "claude", Environment: agent.EnvNative},
				WorkspaceRoot: "/repos",
				WorktreePath:  "/repos/app",
				DisplayOrder:  1,
				Initialized:   true,
			},
			{
				ID:            "s2",
				Agent:         agent.Ref{BaseID: "codex", Environment: agent.EnvSSH},
				WorkspaceRoot: "/repos",
				WorktreePath:  "/repos/app",
				DisplayOrder:  2,
			},
		},
		GroupStates: map[string]layout.State{
			"/repos/app": {
				Groups: []layout.Group{
					{ID: "g1", SessionIDs: []string{"s1"}, ActiveSessionID: "s1"},
					{ID: "g2", SessionIDs: []string{"s2"}, ActiveSessionID: "s2"},
				},
				ActiveGroupID: "g2",
				FlexPercents:  []float64{50, 50},
			},
		},
		LastActive: map[string]string{"/repos/app": "s2"},
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "agentmux.json")
	st := New(path, nil)

	require.NoError(t, st.Save(sampleSnapshot()))

	got, err := st.Load()
	require.NoError(t, err)
	require.Len(t, got.Sessions, 2)
	assert.Equal(t, "s1", got.Sessions[0].ID)
	assert.Equal(t, agent.EnvSSH, got.Sessions[1].Agent.Environment)
	assert.Equal(t, "s2", got.LastActive["/repos/app"])

	state := got.GroupStates["/repos/app"]
	require.Len(t, state.Groups, 2)
	assert.Equal(t, []float64{50, 50}, state.FlexPercents)

	// Loaded states are normalized: the session index answers lookups.
	gid, ok := state.GroupForSession("s2")
	require.True(t, ok)
	assert.Equal(t, "g2", gid)
}

func TestStoreLoadMissingFile(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope.json"), nil)
	got, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, got.Sessions)
	assert.NotNil(t, got.GroupStates)
	assert.NotNil(t, got.LastActive)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := New(path, nil).Load()
	assert.Error(t, err)
}

func TestStoreSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	st := New(path, nil)

	require.NoError(t, st.Save(sampleSnapshot()))
	second := sampleSnapshot()
	second.Sessions = second.Sessions[:1]
	require.NoError(t, st.Save(second))

	got, err := st.Load()
	require.NoError(t, err)
	assert.Len(t, got.Sessions, 1)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
