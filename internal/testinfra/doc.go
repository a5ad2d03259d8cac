// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

//go:build integration

// Package testinfra provides Docker-backed fixtures for integration tests.
//
// Tests using it need the integration build tag and a reachable Docker
// daemon; without Docker they are skipped:
//
//	func TestBroker(t *testing.T) {
//	    nc := testinfra.StartNATS(t)
//	    // connect to nc.URL
//	}
package testinfra
