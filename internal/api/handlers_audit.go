// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"net/http"

	"github.com/DevEmmy/eventfi-backend-v2/internal/audit"
	"github.com/DevEmmy/eventfi-backend-v2/internal/authz"
)

// GetAuditTrail returns the chat's moderation trail, newest first, to
// moderators and the organizer.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	req := newChatRequest(w, r)
	if h.audit == nil {
		req.rw.ServiceUnavailable("audit trail is not enabled")
		return
	}

	def, max := h.pageBounds()
	limit, err := queryInt(r, "limit", def)
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	limit = clampPage(limit, def, max)

	if _, err := h.chat.Authorize(r.Context(), req.eventID, req.userID, authz.ActionAudit); err != nil {
		req.rw.ChatError(err)
		return
	}
	c, err := h.chat.GetOrCreateChat(r.Context(), req.eventID)
	if err != nil {
		req.rw.ChatError(err)
		return
	}

	entries, err := h.audit.Query(r.Context(), audit.QueryFilter{ChatID: c.ID, Limit: limit})
	if err != nil {
		req.rw.ChatError(err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	req.rw.SuccessWithPagination(entries, &PaginationMeta{
		Count:   len(entries),
		Limit:   limit,
		HasMore: len(entries) == limit,
	})
}
