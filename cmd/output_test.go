package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	apperrors "tenant-backup-sync/internal/errors"
)

// captureStderr runs fn with os.Stderr redirected to a pipe and returns what
// was written.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	old := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = old }()

	fn()

	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}
	return string(data)
}

func TestPrintError_UsesUserMessageForClassifiedErrors(t *testing.T) {
	appErr := apperrors.NewAppError(apperrors.ErrorTypeConnection, "cannot reach database host", errors.New("dial tcp: i/o timeout"))

	output := captureStderr(t, func() { printError(appErr) })

	if !strings.Contains(output, "Error: cannot reach database host") {
		t.Errorf("expected user message in output, got: %s", output)
	}
	if strings.Contains(output, "i/o timeout") {
		t.Errorf("cause should not leak without verbose, got: %s", output)
	}
}

func TestPrintError_VerboseIncludesDetail(t *testing.T) {
	oldVerbose := verbose
	verbose = true
	defer func() { verbose = oldVerbose }()

	appErr := apperrors.NewRecoverableError(apperrors.ErrorTypeConnection, "cannot reach database host", errors.New("dial tcp: i/o timeout"))

	output := captureStderr(t, func() { printError(appErr) })

	if !strings.Contains(output, "i/o timeout") {
		t.Errorf("expected cause detail in verbose output, got: %s", output)
	}
	if !strings.Contains(output, "type: connection, recoverable: true") {
		t.Errorf("expected error classification in verbose output, got: %s", output)
	}
}

func TestPrintError_WrappedClassifiedError(t *testing.T) {
	appErr := apperrors.NewAppError(apperrors.ErrorTypePermission, "access denied for backup user", nil)
	wrapped := fmt.Errorf("failed to connect to database: %w", appErr)

	output := captureStderr(t, func() { printError(wrapped) })

	if !strings.Contains(output, "Error: access denied for backup user") {
		t.Errorf("expected user message from wrapped error, got: %s", output)
	}
}

func TestPrintError_PlainErrorPassesThrough(t *testing.T) {
	output := captureStderr(t, func() { printError(errors.New("--verbose and --quiet flags are mutually exclusive")) })

	if !strings.Contains(output, "Error: --verbose and --quiet flags are mutually exclusive") {
		t.Errorf("expected plain error text, got: %s", output)
	}
	if strings.Contains(output, "unexpected error occurred") {
		t.Errorf("plain errors must not be replaced by the generic message, got: %s", output)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, expected %q", tt.bytes, got, tt.expected)
		}
	}
}
