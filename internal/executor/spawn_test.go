package executor

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convengine/engine/internal/store"
)

func lookupOrSkip(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available on PATH: %v", name, err)
	}
	return path
}

func TestSpawnFreeformStreamsStdoutIntoStore(t *testing.T) {
	echoPath := lookupOrSkip(t, "echo")

	s := store.NewStore()
	idx := store.NewEntryIndexProvider()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	proc, err := Spawn(ctx, Options{
		Family:    FamilyFreeform,
		Overrides: CmdOverrides{BaseCommand: echoPath, ExtraArgs: []string{"hello from child"}},
	}, idx, s, nil)
	require.NoError(t, err)
	require.NoError(t, proc.Wait())

	var sawLine, sawFinished bool
	for _, r := range s.GetHistory() {
		if r.Kind == store.RecordStdout && strings.Contains(r.Line, "hello from child") {
			sawLine = true
		}
		if r.Kind == store.RecordFinished {
			sawFinished = true
			require.NotNil(t, r.ExitCode)
			assert.Equal(t, 0, *r.ExitCode)
		}
	}
	assert.True(t, sawLine, "expected raw stdout line recorded")
	assert.True(t, sawFinished, "expected a Finished record after Wait")
}

func TestSpawnNonZeroExitRecordsFailureCode(t *testing.T) {
	shPath := lookupOrSkip(t, "sh")

	s := store.NewStore()
	idx := store.NewEntryIndexProvider()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	proc, err := Spawn(ctx, Options{
		Family:    FamilyFreeform,
		Overrides: CmdOverrides{BaseCommand: shPath, ExtraArgs: []string{"-c", "exit 3"}},
	}, idx, s, nil)
	require.NoError(t, err)
	_ = proc.Wait()

	found := false
	for _, r := range s.GetHistory() {
		if r.Kind == store.RecordFinished {
			found = true
			require.NotNil(t, r.ExitCode)
			assert.Equal(t, 3, *r.ExitCode)
		}
	}
	assert.True(t, found, "expected a Finished record")
}

func TestSpawnRejectsUnsafeInvocation(t *testing.T) {
	s := store.NewStore()
	idx := store.NewEntryIndexProvider()

	_, err := Spawn(context.Background(), Options{
		Family:    FamilyFreeform,
		Overrides: CmdOverrides{BaseCommand: "echo; rm -rf /"},
	}, idx, s, nil)
	assert.Error(t, err, "expected error for unsafe base command")
}
