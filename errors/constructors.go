package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *CctvError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *CctvError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// SurfaceDisconnected marks a dropped automation connection during setup.
func SurfaceDisconnected(stage string, err error) *CctvError {
	return Wrap(err, ErrCodeSurfaceDisconnected, fmt.Sprintf("surface disconnected during %s", stage)).
		WithDetail("stage", stage)
}

// SurfaceLaunchFailed creates a browser launch failure error
func SurfaceLaunchFailed(binary string, err error) *CctvError {
	cctvErr := Wrap(err, ErrCodeSurfaceLaunchFailed, fmt.Sprintf("failed to launch surface: %s", binary)).
		WithDetail("binary", binary)

	if exitErr, ok := err.(*exec.ExitError); ok {
		cctvErr = cctvErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return cctvErr
}

// SurfaceProtocol wraps an error reported by the automation layer itself.
func SurfaceProtocol(method string, err error) *CctvError {
	return Wrap(err, ErrCodeSurfaceProtocol, fmt.Sprintf("automation call %s failed", method)).
		WithDetail("method", method)
}

// AcquisitionExhausted is returned when every acquisition attempt hit a transient error.
func AcquisitionExhausted(attempts int, last error) *CctvError {
	return Wrap(last, ErrCodeAcquisitionExhausted,
		fmt.Sprintf("surface could not be acquired after %d attempts", attempts)).
		WithDetail("attempts", attempts)
}

// CaptureFailed creates a frame capture failure error
func CaptureFailed(reason string, err error) *CctvError {
	if err == nil {
		return New(ErrCodeCaptureFailed, fmt.Sprintf("capture failed: %s", reason))
	}
	return Wrap(err, ErrCodeCaptureFailed, fmt.Sprintf("capture failed: %s", reason))
}

// AlreadyRunning creates a singleton contention error
func AlreadyRunning(pid int) *CctvError {
	return New(ErrCodeAlreadyRunning, fmt.Sprintf("agent already running with PID %d", pid)).
		WithDetail("pid", pid)
}
