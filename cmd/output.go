package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	apperrors "tenant-backup-sync/internal/errors"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgCyan, color.Bold)
)

func init() {
	// Colors degrade to plain text when stdout is not a terminal.
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

func printSuccess(format string, args ...interface{}) {
	if quiet {
		return
	}
	successColor.Printf("✓ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Printf(format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	warnColor.Fprintf(os.Stderr, "! "+format+"\n", args...)
}

func printHeader(text string) {
	if quiet {
		return
	}
	headerColor.Println(text)
	fmt.Println(strings.Repeat("-", len(text)))
}

func printError(err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		errorColor.Fprintf(os.Stderr, "Error: %s\n", apperrors.FormatUserError(err))
		if verbose {
			fmt.Fprintf(os.Stderr, "  detail: %v\n", err)
			fmt.Fprintf(os.Stderr, "  type: %s, recoverable: %v\n", apperrors.GetErrorType(err), apperrors.IsRecoverableError(err))
		}
		return
	}
	errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
}

// promptPassword reads a password from the terminal without echoing it
func promptPassword(prompt string) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("cannot prompt for password: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// formatBytes renders a byte count with a binary unit suffix
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
