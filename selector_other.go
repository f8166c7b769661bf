//go:build !linux && !darwin

package tinypoll

type handle struct{}

func newHandle() (handle, error) { return handle{}, ErrUnsupported }

func waitEvents(handle, []Event, int) (int, error) { return 0, ErrUnsupported }

func registerFD(handle, int, Token, Interests) error { return ErrUnsupported }

func deregisterFD(handle, int) error { return ErrUnsupported }

func wakeup(handle) error { return ErrUnsupported }

func closeHandle(handle) error { return nil }
