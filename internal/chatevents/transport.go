// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chatevents

import (
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport is a connected publisher/subscriber pair plus whatever must be
// shut down with it.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	// Kind names the backend for logs and health output.
	Kind string

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

func (t *Transport) onClose(fn func() error) {
	t.closers = append(t.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		var errs []error
		for i := len(t.closers) - 1; i >= 0; i-- {
			if err := t.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		t.closeErr = errors.Join(errs...)
	})
	return t.closeErr
}
