package channel

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/fgpipe/internal/shared/id"
	"github.com/GriffinCanCode/fgpipe/internal/shared/paths"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
	"github.com/GriffinCanCode/fgpipe/internal/wire"
)

// pipePair returns a channel plus the worker's ends of both pipes
func pipePair(t *testing.T) (*Channel, *os.File, *os.File) {
	t.Helper()

	var args, results [2]int
	require.NoError(t, unix.Pipe2(args[:], unix.O_CLOEXEC))
	require.NoError(t, unix.Pipe2(results[:], unix.O_CLOEXEC))

	ch, err := New(types.RoleF, types.FuncIMul, args[1], results[0])
	require.NoError(t, err)

	workerIn := os.NewFile(uintptr(args[0]), "worker-args")
	workerOut := os.NewFile(uintptr(results[1]), "worker-results")
	t.Cleanup(func() {
		ch.Close()
		workerIn.Close()
		workerOut.Close()
	})
	return ch, workerIn, workerOut
}

func TestChannelSend(t *testing.T) {
	ch, workerIn, _ := pipePair(t)

	require.NoError(t, ch.Send(42))
	require.NoError(t, ch.Send(-3))

	x, err := wire.ReadArg(workerIn)
	require.NoError(t, err)
	assert.Equal(t, int64(42), x)

	x, err = wire.ReadArg(workerIn)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), x)
}

func TestChannelReceiveBatch(t *testing.T) {
	ch, _, workerOut := pipePair(t)

	values, err := ch.Receive()
	require.NoError(t, err, "nothing written yet is not an error")
	assert.Empty(t, values)

	var stream bytes.Buffer
	require.NoError(t, wire.WriteResult(&stream, types.Int(1)))
	require.NoError(t, wire.WriteResult(&stream, types.Failure(types.StatusSoftFail, types.KindInt)))
	require.NoError(t, wire.WriteResult(&stream, types.Int(3)))
	raw := stream.Bytes()

	// Two whole records and half of the third
	_, err = workerOut.Write(raw[:2*wire.ResultSize+4])
	require.NoError(t, err)

	values, err = ch.Receive()
	require.NoError(t, err)
	assert.Equal(t, []types.Value{types.Int(1), types.Failure(types.StatusSoftFail, types.KindInt)}, values)

	_, err = workerOut.Write(raw[2*wire.ResultSize+4:])
	require.NoError(t, err)

	values, err = ch.Receive()
	require.NoError(t, err)
	assert.Equal(t, []types.Value{types.Int(3)}, values)
}

func TestChannelReceiveWorkerExit(t *testing.T) {
	ch, _, workerOut := pipePair(t)

	require.NoError(t, workerOut.Close())

	_, err := ch.Receive()
	assert.ErrorIs(t, err, ErrWorkerExited)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestChannelReceiveTruncatedExit(t *testing.T) {
	ch, _, workerOut := pipePair(t)

	_, err := workerOut.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, workerOut.Close())

	values, err := ch.Receive()
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = ch.Receive()
	assert.ErrorIs(t, err, wire.ErrShortRecord)
}

func TestChannelCloseSignalsWorker(t *testing.T) {
	ch, workerIn, _ := pipePair(t)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close(), "second close is a no-op")

	_, err := wire.ReadArg(workerIn)
	assert.ErrorIs(t, err, io.EOF)
}

func TestProvisioner(t *testing.T) {
	run := paths.ForRun(t.TempDir(), id.NewRunID())
	prov := NewProvisioner(run)

	require.NoError(t, prov.Create())

	dirInfo, err := os.Stat(run.Dir())
	require.NoError(t, err)
	assert.Equal(t, DirMode, dirInfo.Mode().Perm())

	for _, p := range run.All() {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&os.ModeNamedPipe, "%s is not a fifo", p)
		assert.Equal(t, os.FileMode(FifoMode), info.Mode().Perm())
	}

	assert.Error(t, prov.Create(), "run directory already exists")

	require.NoError(t, prov.Remove())
	_, err = os.Stat(run.Dir())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, prov.Remove(), "removing twice is harmless")
}

func TestOpenNamedPipes(t *testing.T) {
	run := paths.ForRun(t.TempDir(), id.NewRunID())
	prov := NewProvisioner(run)
	require.NoError(t, prov.Create())
	defer prov.Remove()

	ch, err := Open(types.RoleG, types.FuncOr, run.Args(types.RoleG), run.Results(types.RoleG))
	require.NoError(t, err)
	defer ch.Close()

	// Worker side opens read-only / write-only without blocking, since the
	// manager already holds the opposite ends
	workerIn, err := os.OpenFile(run.Args(types.RoleG), os.O_RDONLY, 0)
	require.NoError(t, err)
	defer workerIn.Close()
	workerOut, err := os.OpenFile(run.Results(types.RoleG), os.O_WRONLY, 0)
	require.NoError(t, err)
	defer workerOut.Close()

	require.NoError(t, ch.Send(5))
	x, err := wire.ReadArg(workerIn)
	require.NoError(t, err)
	assert.Equal(t, int64(5), x)

	require.NoError(t, wire.WriteResult(workerOut, types.Bool(true)))
	values, err := ch.Receive()
	require.NoError(t, err)
	assert.Equal(t, []types.Value{types.Bool(true)}, values)

	assert.Equal(t, types.RoleG, ch.Role())
	assert.Equal(t, types.FuncOr, ch.Function())
	assert.Equal(t, filepath.Dir(run.Args(types.RoleG)), run.Dir())
}

func TestSpawnerCommand(t *testing.T) {
	run := paths.ForRun("/tmp", "run_X")
	s := &Spawner{Binary: "calculon", Args: []string{"--soft-attempts", "2"}}

	cmd := s.Command(types.RoleF, types.FuncFMul, run)
	assert.Equal(t, []string{
		"calculon", "f", "fmul",
		"--args", "/tmp/fgpipe-run_X/f.args",
		"--results", "/tmp/fgpipe-run_X/f.results",
		"--soft-attempts", "2",
	}, cmd.Args)
	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestProcessTerminate(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	s := &Spawner{Binary: sleep}
	cmd := exec.Command(sleep, "30")
	cmd.SysProcAttr = s.Command(types.RoleF, types.FuncIMul, paths.ForRun("/tmp", "run_X")).SysProcAttr
	require.NoError(t, cmd.Start())

	p := &Process{Role: types.RoleF, cmd: cmd, done: make(chan struct{})}
	go p.Wait()

	p.Terminate(DefaultGrace)
	<-p.Done()
	assert.Error(t, p.Wait(), "terminated by signal")
}
