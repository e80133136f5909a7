package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/cctv/errors"
)

// ErrorHandler reports fatal errors to the operator. Without a terminal
// the report file is the only place the message is seen.
type ErrorHandler struct {
	Verbose bool
	// Out receives the styled message; nil means stderr.
	Out io.Writer
	// ReportPath, when set, receives a timestamped copy of every report.
	ReportPath string
	// Now stamps reports; nil means time.Now.
	Now func() time.Time
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool, reportPath string) *ErrorHandler {
	return &ErrorHandler{
		Verbose:    verbose,
		ReportPath: reportPath,
	}
}

// Message returns the operator-facing text for err.
func Message(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeSurfaceLaunchFailed:
		return "The browser could not be started. Check that browser.binary in cctv.yml names an installed Chromium-family browser."
	case errors.ErrCodeSurfaceProtocol:
		return "The browser rejected an automation request. The page could not be opened for capture."
	case errors.ErrCodeAcquisitionExhausted:
		if e, ok := err.(*errors.CctvError); ok {
			return fmt.Sprintf("The browser kept disconnecting during startup and was given up on after %v attempts.", e.Details["attempts"])
		}
		return "The browser kept disconnecting during startup."
	case errors.ErrCodeDisplayUnavailable:
		return "No display is available to capture. Check that the agent runs inside the desktop session."
	case errors.ErrCodeConfigNotFound:
		if e, ok := err.(*errors.CctvError); ok {
			return fmt.Sprintf("Configuration file %v not found.", e.Details["path"])
		}
		return "Configuration file not found."
	case errors.ErrCodeConfigInvalid:
		return "The configuration is invalid. Fix cctv.yml and restart."
	case errors.ErrCodeInvalidInput:
		return "Invalid input."
	default:
		return "The agent stopped because of an unexpected error."
	}
}

// Handle prints err and appends it to the report file. It returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}

	fmt.Fprintf(out, "%s %s\n", errorStyle.Render("Error:"), Message(err))
	fmt.Fprintf(out, "%s\n", mutedStyle.Render(err.Error()))
	if h.Verbose {
		if cctvErr, ok := err.(*errors.CctvError); ok {
			fmt.Fprintf(out, "\nError details:\n%s\n", cctvErr.ToJSON())
		}
	}

	if h.ReportPath != "" {
		if werr := h.writeReport(err); werr != nil {
			fmt.Fprintf(out, "%s\n", mutedStyle.Render("could not write error report: "+werr.Error()))
		}
	}
	return err
}

func (h *ErrorHandler) writeReport(err error) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if mkErr := os.MkdirAll(filepath.Dir(h.ReportPath), 0755); mkErr != nil {
		return mkErr
	}
	f, openErr := os.OpenFile(h.ReportPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if openErr != nil {
		return openErr
	}
	defer f.Close()

	_, wErr := fmt.Fprintf(f, "%s [%s] %s\n  %v\n", now().Format(time.RFC3339), errors.GetCode(err), Message(err), err)
	return wErr
}
