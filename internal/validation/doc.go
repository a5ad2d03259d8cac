// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package validation validates REST request bodies with
// go-playground/validator v10.
//
// A single validator instance is shared by all handlers; it caches struct
// metadata after the first use and is safe for concurrent use. Field names
// in errors are taken from the json tag, so a failure on
//
//	type sendMessageRequest struct {
//	    Content string             `json:"content" validate:"required"`
//	    Type    models.MessageType `json:"type" validate:"omitempty,messagetype"`
//	}
//
// reports "content is required" rather than "Content is required".
//
// # Custom tags
//
//   - messagetype: one of the chat message types (text, image,
//     announcement, system)
//
// Failures convert to the VALIDATION_ERROR shape used by the API envelope
// through RequestValidationError.ToAPIError.
package validation
