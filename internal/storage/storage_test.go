// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumen/internal/model"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKV(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	sqliteKV, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		fileKV.Close()
		sqliteKV.Close()
	})
	return map[string]KV{"file": fileKV, "sqlite": sqliteKV}
}

func sampleState() model.State {
	older := model.NewConversation("Greeting Exchange")
	older.Messages = append(older.Messages,
		model.NewUserMessage("Hello", model.English),
		model.NewMessage(model.RoleAssistant, "Hi there!", model.English),
	)
	newer := model.NewConversation("Neuer Chat")
	newer.Messages = append(newer.Messages,
		model.NewUserMessage("Grüße, wie geht's? 🌍", model.German),
	)
	return model.State{
		Conversations:        []model.Conversation{newer, older},
		ActiveConversationID: older.ID,
		Language:             model.German,
	}
}

// =============================================================================
// KV BACKEND TESTS
// =============================================================================

func TestKV_GetMissing(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := kv.Get(context.Background(), "missing")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestKV_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.SetMany(ctx, map[string][]byte{
				"a": []byte(`"one"`),
				"b": []byte(`[1,2]`),
			}))
			require.NoError(t, kv.SetMany(ctx, map[string][]byte{"a": []byte(`"two"`)}))

			got, found, err := kv.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, `"two"`, string(got))

			require.NoError(t, kv.Delete(ctx, "a"))
			require.NoError(t, kv.Delete(ctx, "a"), "deleting twice is fine")

			_, found, err = kv.Get(ctx, "a")
			require.NoError(t, err)
			assert.False(t, found)

			got, found, err = kv.Get(ctx, "b")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, `[1,2]`, string(got))
		})
	}
}

func TestFileKV_RejectsPathKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape", "a/b", ""} {
		_, _, err := kv.Get(context.Background(), key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestOpen(t *testing.T) {
	kv, err := Open(BackendFile, filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)
	kv.Close()

	kv, err = Open(BackendSQLite, filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	kv.Close()

	_, err = Open("redis", "x")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".lumen"), ExpandHome("~/.lumen"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

// =============================================================================
// STATE STORE TESTS
// =============================================================================

func TestStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleState()
			states := NewStateStore(kv)
			require.NoError(t, states.Save(ctx, want))

			got, err := NewStateStore(kv).Load(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("reloaded state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStateStore_LoadDefaults(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := NewStateStore(kv).Load(context.Background())
			require.NoError(t, err)

			assert.Empty(t, got.Conversations)
			assert.NotNil(t, got.Conversations)
			assert.Equal(t, "", got.ActiveConversationID)
			assert.Equal(t, model.DefaultLanguage, got.Language)
		})
	}
}

func TestStateStore_NullActiveID(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	states := NewStateStore(kv)
	require.NoError(t, states.Save(ctx, model.State{Language: model.English}))

	raw, found, err := kv.Get(ctx, KeyActiveID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "null", string(raw))

	raw, _, err = kv.Get(ctx, KeyConversations)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestStateStore_CorruptEntryFallsBackIndependently(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleState()
			states := NewStateStore(kv)
			require.NoError(t, states.Save(ctx, want))
			require.NoError(t, kv.SetMany(ctx, map[string][]byte{KeyLanguage: []byte("{not json")}))

			got, err := states.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, model.DefaultLanguage, got.Language)
			assert.Len(t, got.Conversations, 2)
			assert.Equal(t, want.ActiveConversationID, got.ActiveConversationID)
		})
	}
}

func TestStateStore_StaleActiveIDIsNormalized(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	want := sampleState()
	states := NewStateStore(kv)
	require.NoError(t, states.Save(ctx, want))
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{KeyActiveID: []byte(`"gone"`)}))

	got, err := states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Conversations[0].ID, got.ActiveConversationID)
}

func TestStateStore_RegionalLanguageTag(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{KeyLanguage: []byte(`"fr-CA"`)}))

	got, err := NewStateStore(kv).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.French, got.Language)
}
