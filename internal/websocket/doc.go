// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Package websocket implements the realtime chat gateway.

Each authenticated connection is a Client with a read loop and a write loop.
A connection is in at most one event room at a time. The Hub owns room
membership and delivers room broadcasts in the order they were queued.

Frames are JSON objects with an event name and a payload:

	{"event": "join", "data": {"eventId": "..."}}

Inbound events: join, leave, message, typing, read and ping.
Outbound events: joined, message, member:joined, member:left, typing,
typing:stop, error and pong.

Errors are only ever sent to the connection that caused them. A user may hold
several connections in the same room; member:left is broadcast when the last
of them leaves or disconnects.
*/
package websocket
