package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompilerOutput_AbsentOnNilPointer(t *testing.T) {
	var out *CompilerOutput
	assert.True(t, out.Absent())
}

func TestCompilerOutput_AbsentOnEmptyPath(t *testing.T) {
	out := &CompilerOutput{OutputFilePath: "", ErrorCount: 0}
	assert.True(t, out.Absent())
}

func TestCompilerOutput_NotAbsentWithPath(t *testing.T) {
	out := &CompilerOutput{OutputFilePath: "/out.dill"}
	assert.False(t, out.Absent())
}

func TestParseTargetModel(t *testing.T) {
	flutter, err := ParseTargetModel("flutter")
	assert.NoError(t, err)
	assert.Equal(t, TargetFlutter, flutter)

	runner, err := ParseTargetModel("flutter_runner")
	assert.NoError(t, err)
	assert.Equal(t, TargetFlutterRunner, runner)

	_, err = ParseTargetModel("bogus")
	assert.Error(t, err)
}

func TestTargetModel_String(t *testing.T) {
	assert.Equal(t, "flutter", TargetFlutter.String())
	assert.Equal(t, "flutter_runner", TargetFlutterRunner.String())
}

func TestRequest_CompleteThenWaitReturnsResult(t *testing.T) {
	req := NewRequest(RequestRecompile)
	out := &CompilerOutput{OutputFilePath: "/out.dill"}

	go req.Complete(out, nil)

	gotOut, gotErr := req.Wait()
	assert.NoError(t, gotErr)
	assert.Same(t, out, gotOut)
}

func TestRequest_CompleteTwicePanics(t *testing.T) {
	req := NewRequest(RequestReject)
	req.Complete(nil, nil)

	assert.Panics(t, func() { req.Complete(nil, nil) })
}

func TestRequest_WaitBlocksUntilComplete(t *testing.T) {
	req := NewRequest(RequestAccept)
	done := make(chan struct{})

	go func() {
		req.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Complete was called")
	default:
	}

	req.Complete(nil, nil)
	<-done
}
