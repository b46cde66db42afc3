package console

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeController struct {
	stopped     bool
	started     bool
	closed      bool
	reconnected bool
}

func (f *fakeController) Stop()             { f.stopped = true }
func (f *fakeController) StartProcessing()  { f.started = true }
func (f *fakeController) CloseConnections() { f.closed = true }
func (f *fakeController) Reconnect()        { f.reconnected = true }

func TestRunDispatchesAllCommands(t *testing.T) {
	f := &fakeController{}
	input := strings.NewReader("s\ncc\nrc\nq\n")

	Run(input, f, zap.NewNop())

	if !f.started || !f.closed || !f.reconnected || !f.stopped {
		t.Fatalf("expected all commands dispatched, got %+v", f)
	}
}

func TestRunStopsAtQAndIgnoresUnknown(t *testing.T) {
	f := &fakeController{}
	input := strings.NewReader("bogus\nq\ns\n")

	Run(input, f, zap.NewNop())

	if !f.stopped {
		t.Fatal("expected stop to be called")
	}
	if f.started {
		t.Fatal("commands after q must not be processed")
	}
}
