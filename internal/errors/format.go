package errors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// FormatError renders a CLIError with ANSI colors for terminal display.
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}
	heading := color.New(color.FgRed, color.Bold).Sprint(err.Category.String())
	return format(err, heading)
}

// FormatErrorPlain renders a CLIError without color codes.
func FormatErrorPlain(err *CLIError) string {
	if err == nil {
		return ""
	}
	return format(err, err.Category.String())
}

func format(err *CLIError, heading string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", heading, err.Message)
	if err.Usage != "" {
		fmt.Fprintf(&sb, "\nUsage: %s\n", err.Usage)
	}
	if len(err.Remediation) > 0 {
		sb.WriteString("\nTo fix this:\n")
		for _, step := range err.Remediation {
			fmt.Fprintf(&sb, "  - %s\n", step)
		}
	}
	return sb.String()
}

// FormatSimpleError renders a plain error under a category heading. Returns
// an empty string for nil input.
func FormatSimpleError(err error, category ErrorCategory) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s\n", category.String(), err.Error())
}

// PrintError writes a formatted CLIError to stderr.
func PrintError(err *CLIError) {
	FprintError(os.Stderr, err)
}

// FprintError writes a formatted CLIError to w. Nil errors write nothing.
func FprintError(w io.Writer, err *CLIError) {
	if err == nil {
		return
	}
	fmt.Fprint(w, FormatErrorPlain(err))
}
