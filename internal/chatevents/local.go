// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chatevents

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// localBuffer is the per-subscriber output buffer of the in-process pub/sub.
const localBuffer = 256

// NewLocalTransport returns an in-process go channel pub/sub. Messages
// published while nothing is subscribed are dropped.
func NewLocalTransport(logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: localBuffer,
	}, logger)

	t := &Transport{Publisher: ps, Subscriber: ps, Kind: "gochannel"}
	t.onClose(ps.Close)
	return t
}
