// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Package auth verifies the signed credentials issued by the EventFi auth
service.

Credentials are HS256 JWTs carrying a userId claim. The middleware accepts
them from, in order:

  - the Authorization header as "Bearer <token>"
  - the "token" cookie
  - the "token" query parameter, for websocket handshakes from browsers that
    cannot set headers

Handlers read the authenticated user with UserIDFromContext.
*/
package auth
