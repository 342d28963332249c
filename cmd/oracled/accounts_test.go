package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAccounts(t *testing.T) {
	var buf bytes.Buffer
	accounts := []json.RawMessage{
		json.RawMessage(`{"address":"a1","authority":"alice","reputationScore":50000100}`),
		json.RawMessage(`{"address":"b2","authority":"bob","reputationScore":0}`),
	}
	require.NoError(t, renderAccounts(&buf, accounts))

	out := buf.String()
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "REPUTATIONSCORE")
	assert.Contains(t, out, "50000100")
	assert.Less(t, strings.Index(out, "alice"), strings.Index(out, "bob"))
}

func TestReadKey(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(good, []byte(strings.Repeat("ab", 32)+"\n"), 0600))
	k, err := readKey(good)
	require.NoError(t, err)
	assert.Len(t, k, 64)

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("abcd"), 0600))
	_, err = readKey(bad)
	assert.Error(t, err)
}
