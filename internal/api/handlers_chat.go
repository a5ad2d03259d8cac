// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DevEmmy/eventfi-backend-v2/internal/auth"
)

// chatRequest carries the identity and route parameters shared by every
// chat route.
type chatRequest struct {
	rw      *ResponseWriter
	eventID string
	userID  string
}

func newChatRequest(w http.ResponseWriter, r *http.Request) *chatRequest {
	return &chatRequest{
		rw:      NewResponseWriter(w, r),
		eventID: chi.URLParam(r, "id"),
		userID:  auth.UserIDFromContext(r.Context()),
	}
}

// GetChat joins the caller to the event's chat, or reports why they
// cannot join. A refusal is a successful response with canJoin=false.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	res, err := h.chat.GetOrJoinChat(r.Context(), req.eventID, req.userID)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	req.rw.Success(res)
}

// GetMessages returns one page of history, oldest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	def, max := h.pageBounds()
	limit, err := queryInt(r, "limit", def)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	limit = clampPage(limit, def, max)

	page, err := h.chat.GetMessages(r.Context(), req.eventID, req.userID, r.URL.Query().Get("before"), limit)
	if err != nil {
		req.rw.ChatError(err)
		return
	}

	pagination := &PaginationMeta{Count: len(page.Messages), Limit: limit, HasMore: page.HasMore}
	if page.HasMore && len(page.Messages) > 0 {
		pagination.NextCursor = page.Messages[0].ID
	}
	req.rw.SuccessWithPagination(page, pagination)
}

// GetPinnedMessages returns the chat's pinned messages.
func (h *Handler) GetPinnedMessages(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	msgs, err := h.chat.GetPinnedMessages(r.Context(), req.eventID, req.userID)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	req.rw.Success(msgs)
}

// SendMessage posts a message and fans it out to the event's websocket room.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	var body sendMessageRequest
	if !decodeBody(w, r, &body) {
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), req.eventID, req.userID, body.input())
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	h.gateway.BroadcastMessage(req.eventID, msg)
	req.rw.Created(msg)
}

// ModerateMessage deletes, pins or unpins a message.
func (h *Handler) ModerateMessage(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	var body moderateRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.chat.ModerateMessage(r.Context(), req.eventID, chi.URLParam(r, "messageId"), req.userID, body.Action)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	req.rw.Success(res)
}

// ListMembers lists chat members, optionally only those online.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	onlineOnly, err := queryBool(r, "online")
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	def, max := h.pageBounds()
	limit, err := queryInt(r, "limit", def)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	limit = clampPage(limit, def, max)

	members, err := h.chat.ListMembers(r.Context(), req.eventID, req.userID, onlineOnly, limit)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	req.rw.SuccessWithPagination(members, &PaginationMeta{
		Count:   len(members),
		Limit:   limit,
		HasMore: len(members) == limit,
	})
}

// MuteUser mutes or unmutes a member.
func (h *Handler) MuteUser(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	var body muteRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := h.chat.MuteUser(r.Context(), req.eventID, chi.URLParam(r, "userId"), req.userID, *body.Duration)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	req.rw.Success(res)
}

// UpdateSettings changes chat settings. Organizer only.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	var body settingsRequest
	if !decodeBody(w, r, &body) {
		return
	}

	updated, err := h.chat.UpdateSettings(r.Context(), req.eventID, req.userID, body.patch())
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	req.rw.Success(updated)
}
