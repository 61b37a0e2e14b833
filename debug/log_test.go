package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogWritesCategory(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(zapcore.AddSync(&buf))
	defer Disable()

	Log("clock", "tempo %.1f", 90.0)
	out := buf.String()
	if !strings.Contains(out, "tempo 90.0") || !strings.Contains(out, `"category": "clock"`) {
		t.Fatalf("log = %q", out)
	}
}

func TestDisabledLogIsNoop(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(zapcore.AddSync(&buf))
	Disable()

	Log("clock", "dropped")
	if buf.Len() != 0 || Enabled() {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}
}

func TestLogEvery(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(zapcore.AddSync(&buf))
	defer Disable()

	for i := 0; i < 6; i++ {
		LogEvery(3, "midi", "send failed %s", "x")
	}
	if n := strings.Count(buf.String(), "send failed x"); n != 2 {
		t.Fatalf("logged %d times, want 2:\n%s", n, buf.String())
	}
}

func TestEnableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatal(err)
	}
	defer Disable()
	if !Enabled() {
		t.Fatal("not enabled")
	}
}

func TestEnableReportsUnusableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	err := Enable(filepath.Join(blocker, "sub", "debug.log"))
	if err == nil {
		Disable()
		t.Fatal("Enable succeeded under a regular file")
	}
	if !strings.Contains(err.Error(), "create log dir") {
		t.Fatalf("err = %v", err)
	}
	if Enabled() {
		t.Fatal("logger enabled after failure")
	}
}

func TestLogEveryClampsInterval(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(zapcore.AddSync(&buf))
	defer Disable()

	for _, n := range []int{0, -2} {
		LogEvery(n, "clock", "overrun %d", n)
	}
	if c := strings.Count(buf.String(), "overrun"); c != 2 {
		t.Fatalf("logged %d times, want 2:\n%s", c, buf.String())
	}
}
