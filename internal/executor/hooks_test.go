package executor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteClaudeHooksCreatesExecutableScriptAndGitignore(t *testing.T) {
	dir := t.TempDir()

	hookPath, err := WriteClaudeHooks(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "feedback-marker")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(hookPath)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o100, "expected hook script executable")
	}

	gitignore := filepath.Join(dir, ".claude", "hooks", ".gitignore")
	data, err = os.ReadFile(gitignore)
	require.NoError(t, err)
	assert.Equal(t, "confirm.py\n.gitignore\n", string(data))
}

func TestWriteClaudeHooksPreservesExistingGitignore(t *testing.T) {
	dir := t.TempDir()
	hooksDir := filepath.Join(dir, ".claude", "hooks")
	require.NoError(t, os.MkdirAll(hooksDir, 0o755))
	custom := "# custom\n"
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, ".gitignore"), []byte(custom), 0o644))

	_, err := WriteClaudeHooks(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(hooksDir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data), "expected existing .gitignore untouched")
}

func TestHookMatcherPlanModeVsDefault(t *testing.T) {
	assert.Equal(t, "^ExitPlanMode$", HookMatcher(true))
	assert.Contains(t, HookMatcher(false), "Glob|Grep")
}

func TestSettingsJSONEmbedsBackendPortAndTimeout(t *testing.T) {
	raw, err := SettingsJSON(false, 8787, 300)
	require.NoError(t, err)
	assert.Contains(t, raw, "8787")
	assert.Contains(t, raw, "--timeout-seconds 305", "expected approval timeout + 5 in command")
	assert.Contains(t, raw, `"timeout":315`, "expected hook timeout = backend_timeout+10")
}
