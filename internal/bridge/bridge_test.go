package bridge

import (
	"io"
	"os"
	"testing"
	"time"

	ptylib "github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/arturogj92/codeagentswarm/internal/pty"
)

// startBridge spawns a session and runs a bridge over pipe-backed stdio.
// The returned reader carries everything the bridge wrote to its output.
func startBridge(t *testing.T, command string) (sess *pty.Session, in *os.File, out *os.File, done chan error) {
	t.Helper()

	sess, err := pty.Spawn(pty.Options{Shell: "/bin/sh", Dir: "/tmp", Command: command})
	require.NoError(t, err)

	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	outR, outW, err := os.Pipe()
	require.NoError(t, err)

	br := New(sess, inR, outW, Options{PollInterval: 20 * time.Millisecond})
	done = make(chan error, 1)
	go func() {
		done <- br.Run()
		inR.Close()
		outW.Close()
	}()

	t.Cleanup(func() {
		inW.Close()
		outR.Close()
		sess.Teardown()
	})
	return sess, inW, outR, done
}

// writeChunk writes one logical message and gives the loop time to pick it
// up before the caller writes the next one, so messages stay in separate
// read chunks.
func writeChunk(t *testing.T, in *os.File, s string) {
	t.Helper()
	_, err := in.Write([]byte(s))
	require.NoError(t, err)
	time.Sleep(300 * time.Millisecond)
}

func waitBridge(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(15 * time.Second):
		t.Fatal("bridge did not stop")
		return nil
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	_, _, out, done := startBridge(t, "echo hi")

	require.NoError(t, waitBridge(t, done))

	data, _ := io.ReadAll(out)
	assert.Contains(t, string(data), "hi")
}

func TestBridgeForwardsInput(t *testing.T) {
	_, in, out, done := startBridge(t, "")

	_, err := in.Write([]byte("echo bridged\n"))
	require.NoError(t, err)
	_, err = in.Write([]byte("exit\n"))
	require.NoError(t, err)

	require.NoError(t, waitBridge(t, done))

	data, _ := io.ReadAll(out)
	assert.Contains(t, string(data), "bridged")
}

func TestBridgeAppliesResize(t *testing.T) {
	sess, in, out, done := startBridge(t, "")

	_, err := in.Write([]byte("###RESIZE###121,41\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ws, err := ptylib.GetsizeFull(sess.Pty)
		return err == nil && ws.Cols == 121 && ws.Rows == 41
	}, 5*time.Second, 50*time.Millisecond, "window size was not applied")

	_, err = in.Write([]byte("exit\n"))
	require.NoError(t, err)
	require.NoError(t, waitBridge(t, done))

	// The slave echoes its input, so a forwarded sentinel would show up
	// in the output stream.
	data, _ := io.ReadAll(out)
	assert.NotContains(t, string(data), ResizePrefix)
}

func TestBridgeSurvivesMalformedResize(t *testing.T) {
	_, in, out, done := startBridge(t, "")

	// Control messages are recognized per read chunk, so pause between
	// writes; back-to-back pipe writes would coalesce into one chunk and
	// the dropped message would swallow the commands behind it.
	writeChunk(t, in, "###RESIZE###nonsense\n")
	writeChunk(t, in, "echo still-alive\n")
	writeChunk(t, in, "exit\n")

	require.NoError(t, waitBridge(t, done))

	data, _ := io.ReadAll(out)
	assert.Contains(t, string(data), "still-alive")
	assert.NotContains(t, string(data), ResizePrefix)
}

func TestBridgeKeepsRunningAfterInputCloses(t *testing.T) {
	sess, in, _, done := startBridge(t, "sleep 1")

	// Input EOF must not end the session; the bridge runs until the
	// child exits on its own.
	require.NoError(t, in.Close())

	require.NoError(t, waitBridge(t, done))
	assert.False(t, sess.Alive())
	assert.Equal(t, 0, sess.ExitCode())
}

func TestBridgeStopsWhenChildExits(t *testing.T) {
	sess, _, _, done := startBridge(t, "exit 3")

	require.NoError(t, waitBridge(t, done))
	assert.False(t, sess.Alive())
	assert.Equal(t, 3, sess.ExitCode())
}

func TestBridgeForwardsInterrupt(t *testing.T) {
	sess, _, _, done := startBridge(t, "sleep 30")

	// Give Run a moment to install its signal handler, then interrupt
	// ourselves the way an embedding caller would.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGINT))

	require.NoError(t, waitBridge(t, done))
	assert.False(t, sess.Alive(), "child should have died from the forwarded interrupt")
}
