package spawn

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_SpawnRecordsCallsAndReplaysStdio(t *testing.T) {
	fake := &Fake{Stdout: strings.NewReader("hello\n")}

	proc, err := fake.Spawn(context.Background(), "dartaotruntime", []string{"--flag"}, nil)
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "dartaotruntime", fake.Calls[0].Name)
	assert.Equal(t, []string{"--flag"}, fake.Calls[0].Args)

	data, err := io.ReadAll(proc.Stdout)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestFake_SpawnErrSkipsProcessCreation(t *testing.T) {
	wantErr := errors.New("boom")
	fake := &Fake{SpawnErr: wantErr}

	proc, err := fake.Spawn(context.Background(), "dartaotruntime", nil, nil)
	assert.Nil(t, proc)
	assert.Equal(t, wantErr, err)
}

func TestFake_WaitReturnsScriptedError(t *testing.T) {
	wantErr := errors.New("exit status 1")
	fake := &Fake{WaitErr: wantErr}

	proc, err := fake.Spawn(context.Background(), "dartaotruntime", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, wantErr, proc.Wait())
}

func TestFake_KillAndPidAreSafeNoOps(t *testing.T) {
	fake := &Fake{}
	proc, err := fake.Spawn(context.Background(), "dartaotruntime", nil, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() { proc.Kill() })
	assert.Equal(t, 0, proc.Pid())
}

func TestFake_StdinWritesAreObservable(t *testing.T) {
	var buf strings.Builder
	fake := &Fake{Stdin: &buf}

	proc, err := fake.Spawn(context.Background(), "dartaotruntime", nil, nil)
	require.NoError(t, err)

	_, err = proc.Stdin.Write([]byte("compile main.dart\n"))
	require.NoError(t, err)
	assert.Equal(t, "compile main.dart\n", buf.String())
}
