//go:build linux || darwin

package tinypoll

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// waitError converts a failed wait into the package's error kinds, keeping
// EINTR distinguishable so that Poll can retry it.
func waitError(name string, err error) error {
	if err == unix.EINTR {
		return fmt.Errorf("%w: %w", ErrInterrupted, syscallError(name, err))
	}
	return syscallError(name, err)
}
