// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package checksum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/hotswap/internal/checksum"
	"github.com/holomush/hotswap/pkg/errutil"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func TestFile_MatchesBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libfix.so")
	content := []byte("\x7fELF pretend library image")
	writeFile(t, path, content)

	sum, err := checksum.File(path)
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes(content), sum)
}

func TestFile_IdenticalRewriteKeepsSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libfix.so")
	writeFile(t, path, []byte("version one"))
	before, err := checksum.File(path)
	require.NoError(t, err)

	// Rewriting the same bytes is a no-op rebuild.
	writeFile(t, path, []byte("version one"))
	after, err := checksum.File(path)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestFile_ChangedContentChangesSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libfix.so")
	writeFile(t, path, []byte("version one"))
	before, err := checksum.File(path)
	require.NoError(t, err)

	writeFile(t, path, []byte("version two"))
	after, err := checksum.File(path)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestFile_Missing(t *testing.T) {
	_, err := checksum.File(filepath.Join(t.TempDir(), "missing.so"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, checksum.CodeChecksumUnavailable)
}

func TestSum_String(t *testing.T) {
	assert.Equal(t, "00000000000000ff", checksum.Sum(255).String())
	assert.Len(t, checksum.Bytes([]byte("x")).String(), 16)
}
