// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tinypoll

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// DefaultEventCapacity is the number of events a zero-capacity [Events]
// buffer is grown to, by [Poll.Poll].
const DefaultEventCapacity = 1024

// pollOptions holds configuration options for Poll creation.
type pollOptions struct {
	logger        *logiface.Logger[logiface.Event]
	eventCapacity int
}

// --- Poll Options ---

// Option configures a Poll instance.
type Option interface {
	applyPoll(*pollOptions) error
}

// pollOptionImpl implements Option.
type pollOptionImpl struct {
	applyPollFunc func(*pollOptions) error
}

func (x *pollOptionImpl) applyPoll(opts *pollOptions) error {
	return x.applyPollFunc(opts)
}

// WithLogger attaches a structured logger to the Poll, and to every
// Registrator minted from it. Logging is disabled by default (nil logger).
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &pollOptionImpl{func(opts *pollOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithEventCapacity sets the capacity that a zero-capacity Events buffer is
// grown to, i.e. the maximum number of events delivered per wait, for
// callers that do not size their own buffer. Must be positive.
func WithEventCapacity(n int) Option {
	return &pollOptionImpl{func(opts *pollOptions) error {
		if n <= 0 {
			return errors.New("tinypoll: event capacity must be positive")
		}
		opts.eventCapacity = n
		return nil
	}}
}

// resolvePollOptions applies Option instances to pollOptions.
func resolvePollOptions(opts []Option) (*pollOptions, error) {
	cfg := &pollOptions{
		eventCapacity: DefaultEventCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyPoll(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
