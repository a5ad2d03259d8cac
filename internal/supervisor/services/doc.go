// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Package services adapts chat server components to suture.Service.

  - HTTPServerService turns ListenAndServe/Shutdown into Serve.
  - WebSocketHubService delegates to the hub's RunWithContext.
  - ChatEventRouterService builds a fresh event router on every start,
    because a watermill router cannot be run again once closed.

Every wrapper implements fmt.Stringer so supervisor events carry a readable
service name.
*/
package services
