// Copyright 2025 Glimpse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// PrintSuccessSummary prints a standardized success message
// Examples:
//   - "✓ Stopped server"
//   - "✓ Opened http://localhost:8080/"
func (f *formatter) PrintSuccessSummary(operation, detail string) error {
	if f.quiet {
		// Quiet mode: suppress summary
		return nil
	}

	if f.mode == ModeJSON {
		// JSON mode: structured output
		return f.PrintJSON(map[string]any{
			"success":   true,
			"operation": operation,
			"detail":    detail,
		})
	}

	// Table mode: user-friendly message
	var message string
	if detail != "" {
		message = fmt.Sprintf("✓ %s %s", capitalize(operation), detail)
	} else {
		message = fmt.Sprintf("✓ %s completed successfully", capitalize(operation))
	}

	if f.color {
		_, err := color.New(color.FgGreen).Fprintln(f.stdout, message)
		return err
	}

	_, err := fmt.Fprintln(f.stdout, message)
	return err
}

// PrintTotalFailureSummary prints total failure with error and suggestions
// Example output:
//
//	✗ Failed to start server: port already in use: port 8080
//
//	💡 Suggestions:
//	  → Pick another port:      glimpse serve --port 3000
func (f *formatter) PrintTotalFailureSummary(operation string, err error, errorCode string) error {
	if f.quiet {
		// Quiet mode: suppress summary
		return nil
	}

	if f.mode == ModeJSON {
		// JSON mode: structured output
		return f.PrintJSON(map[string]any{
			"success":    false,
			"operation":  operation,
			"error":      err.Error(),
			"error_code": errorCode,
		})
	}

	// Table mode: formatted error with suggestions
	var sb strings.Builder

	// Error message
	errorMsg := fmt.Sprintf("✗ Failed to %s: %v", operation, err)
	if f.color {
		sb.WriteString(color.RedString("%s\n", errorMsg))
	} else {
		sb.WriteString(fmt.Sprintf("%s\n", errorMsg))
	}

	// Suggestions based on error code
	suggestions := GetSuggestions(errorCode, operation)
	if len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  → %s\n", s))
		}
	}

	_, writeErr := f.stderr.Write([]byte(sb.String()))
	return writeErr
}

// GetSuggestions returns actionable hints based on error code and operation
func GetSuggestions(errorCode string, operation string) []string {
	suggestions := []string{}

	switch errorCode {
	case "SERVER_INVALID_PORT":
		suggestions = append(suggestions,
			"Use a port between 1 and 65535",
			"Example:                  glimpse serve --port 3000",
		)

	case "SERVER_PORT_IN_USE":
		suggestions = append(suggestions,
			"Pick another port:        glimpse serve --port 3000",
			"Find the holder:          lsof -i :<port>",
		)

	case "SERVER_DIR_UNAVAILABLE":
		suggestions = append(suggestions,
			"Serve an existing folder: glimpse serve --dir ./public",
			"Scaffold a new site:      glimpse init <dir>",
		)

	case "SERVER_VERSION_UNSUPPORTED":
		suggestions = append(suggestions,
			"Upgrade glimpse to a release matching the requires constraint",
			"Or relax the requires field in glimpse.yaml",
		)

	case "SERVER_INVALID_CONFIG":
		suggestions = append(suggestions,
			"Check glimpse.yaml for typos or out-of-range values",
			"Regenerate defaults:      glimpse init --force",
		)

	case "SERVER_NO_INSTANCE":
		suggestions = append(suggestions,
			"Start a server first:     glimpse serve",
		)

	case "SERVER_STALE_INSTANCE":
		suggestions = append(suggestions,
			"The recorded server is gone; start a new one",
			"Example:                  glimpse serve",
		)

	case "SERVER_INIT_FAILED":
		if strings.Contains(operation, "scaffold") {
			suggestions = append(suggestions,
				"Overwrite existing files: glimpse init --force",
				"Check directory permissions",
			)
		} else {
			suggestions = append(suggestions,
				fmt.Sprintf("Retry with debug logging: glimpse %s --debug", operationCommand(operation)),
			)
		}
	}

	return suggestions
}

// operationCommand maps a human operation phrase to the command that ran it
func operationCommand(operation string) string {
	switch operation {
	case "open browser":
		return "open"
	default:
		return "serve"
	}
}

// capitalize capitalizes the first letter of a string
func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
