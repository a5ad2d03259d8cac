// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
	"github.com/DevEmmy/eventfi-backend-v2/internal/validation"
)

// maxBodyBytes bounds request bodies. The largest legitimate body is a
// message of chat.MaxContentLength runes.
const maxBodyBytes = 64 << 10

// sendMessageRequest is the body of POST .../messages. Content length is
// checked by the chat service so an oversized message reports
// MESSAGE_TOO_LONG.
type sendMessageRequest struct {
	Content   string             `json:"content" validate:"required"`
	Type      models.MessageType `json:"type,omitempty" validate:"omitempty,messagetype"`
	ReplyToID string             `json:"replyToId,omitempty" validate:"omitempty,max=64"`
}

func (r *sendMessageRequest) input() chat.SendInput {
	return chat.SendInput{Content: r.Content, Type: r.Type, ReplyToID: r.ReplyToID}
}

type moderateRequest struct {
	Action chat.ModerationAction `json:"action" validate:"required,oneof=delete pin unpin"`
}

// muteRequest carries the mute duration in minutes; zero unmutes.
type muteRequest struct {
	Duration *int `json:"duration" validate:"required,min=0,max=525600"`
}

type settingsRequest struct {
	SlowMode    *int  `json:"slowMode,omitempty" validate:"omitempty,min=0,max=3600"`
	IsActive    *bool `json:"isActive,omitempty"`
	MembersOnly *bool `json:"membersOnly,omitempty"`
}

func (r *settingsRequest) patch() models.ChatSettingsPatch {
	return models.ChatSettingsPatch{
		SlowMode:    r.SlowMode,
		IsActive:    r.IsActive,
		MembersOnly: r.MembersOnly,
	}
}

// decodeBody reads a JSON body into v and validates it. On failure the
// response has been written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	rw := NewResponseWriter(w, r)
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			rw.ValidationError("request body too large", nil)
		case errors.Is(err, io.EOF):
			rw.ValidationError("request body is required", nil)
		default:
			rw.ValidationError("malformed JSON body", nil)
		}
		return false
	}

	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, chat.NewError(chat.CodeValidation, key+" must be a positive integer")
	}
	return v, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, chat.NewError(chat.CodeValidation, key+" must be true or false")
	}
	return v, nil
}

// clampPage applies the configured page bounds to a requested limit.
func clampPage(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
