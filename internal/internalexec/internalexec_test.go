package internalexec

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

type collected struct {
	mu    sync.Mutex
	lines map[Stream][]string
}

func (c *collected) handle(stream Stream, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		c.lines = make(map[Stream][]string)
	}
	c.lines[stream] = append(c.lines[stream], line)
}

func TestRunStreaming_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	var out collected
	cmd := exec.Command("sh", "-c", "echo hello; echo world")

	result, err := RunStreaming(cmd, out.handle)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"hello", "world"}, out.lines[Stdout])
	assert.Empty(t, out.lines[Stderr])
}

func TestRunStreaming_WithError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	var out collected
	cmd := exec.Command("sh", "-c", "echo 'error message' >&2; exit 3")

	result, err := RunStreaming(cmd, out.handle)
	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "error message", result.Stderr)
	assert.Equal(t, []string{"error message"}, out.lines[Stderr])
}

func TestRunStreaming_RejectsPresetWriters(t *testing.T) {
	cmd := exec.Command("true")
	cmd.Stdout = &collectedWriter{}

	_, err := RunStreaming(cmd, nil)
	require.Error(t, err)
}

type collectedWriter struct{}

func (collectedWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRunStreaming_ProcessGroupKilledOnCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", "sleep 5 & wait")
	ConfigureProcessGroup(cmd)

	start := time.Now()
	_, err := RunStreaming(cmd, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunStreaming_KeepsOnlyTail(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	cmd := exec.Command("sh", "-c", "i=0; while [ $i -lt 60 ]; do echo line$i; i=$((i+1)); done")

	result, err := RunStreaming(cmd, nil)
	require.NoError(t, err)
	assert.NotContains(t, result.Stdout, "line9\n")
	assert.Contains(t, result.Stdout, "line10\n")
	assert.Contains(t, result.Stdout, "line59")
}

func TestDecodeLine(t *testing.T) {
	t.Run("keeps utf8", func(t *testing.T) {
		assert.Equal(t, "처리 완료", DecodeLine([]byte("처리 완료")))
	})

	t.Run("decodes legacy korean output", func(t *testing.T) {
		raw, err := korean.EUCKR.NewEncoder().Bytes([]byte("오류 발생"))
		require.NoError(t, err)
		assert.Equal(t, "오류 발생", DecodeLine(raw))
	})

	t.Run("replaces undecodable bytes", func(t *testing.T) {
		got := DecodeLine([]byte{'o', 'k', 0xff})
		assert.Contains(t, got, "ok")
		assert.Contains(t, got, "�")
	})
}

func TestPrimaryOutput(t *testing.T) {
	assert.Equal(t, "error message", PrimaryOutput(Result{Stdout: "normal output", Stderr: "error message"}))
	assert.Equal(t, "normal output", PrimaryOutput(Result{Stdout: "normal output"}))
	assert.Equal(t, "", PrimaryOutput(Result{}))
}
