// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Package api exposes the event chat over HTTP.

Routes are mounted on a chi router under /api/v1:

	GET    /health
	GET    /ws                                        websocket upgrade
	GET    /events/{id}/chat                          join or inspect
	GET    /events/{id}/chat/messages?before=&limit=  history page
	GET    /events/{id}/chat/messages/pinned
	POST   /events/{id}/chat/messages                 {content, type?, replyToId?}
	PATCH  /events/{id}/chat/messages/{messageId}     {action}
	GET    /events/{id}/chat/members?online=&limit=
	POST   /events/{id}/chat/members/{userId}/mute    {duration}
	PATCH  /events/{id}/chat/settings                 {slowMode?, isActive?, membersOnly?}
	GET    /events/{id}/chat/audit?limit=

Prometheus metrics are served at /metrics.

Every chat route requires a bearer token (see package auth). Responses use
the envelope written by ResponseWriter:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "SLOW_MODE", "message": "...", "details": {"retryAfter": 12}}}

Chat error codes map to HTTP status: not found 404, authorization 403,
rate and mute 429 with Retry-After, malformed input 400.
*/
package api
