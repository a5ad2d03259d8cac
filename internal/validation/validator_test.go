// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package validation

import (
	"strings"
	"testing"

	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

type messageBody struct {
	Content   string             `json:"content" validate:"required"`
	Type      models.MessageType `json:"type,omitempty" validate:"omitempty,messagetype"`
	ReplyToID string             `json:"replyToId,omitempty" validate:"omitempty,max=64"`
}

type settingsBody struct {
	SlowMode *int   `json:"slowMode" validate:"omitempty,min=0,max=3600"`
	Action   string `json:"action" validate:"omitempty,oneof=delete pin unpin"`
	Internal string `json:"-" validate:"omitempty,min=2"`
}

func intPtr(v int) *int { return &v }

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{name: "valid text", input: &messageBody{Content: "hi", Type: models.MessageText}},
		{name: "type omitted", input: &messageBody{Content: "hi"}},
		{name: "announcement", input: &messageBody{Content: "doors open", Type: models.MessageAnnouncement}},
		{name: "missing content", input: &messageBody{}, wantField: "content", wantTag: "required"},
		{name: "unknown type", input: &messageBody{Content: "hi", Type: "video"}, wantField: "type", wantTag: "messagetype"},
		{name: "long reply id", input: &messageBody{Content: "hi", ReplyToID: strings.Repeat("a", 65)}, wantField: "replyToId", wantTag: "max"},
		{name: "nil slow mode", input: &settingsBody{}},
		{name: "zero slow mode", input: &settingsBody{SlowMode: intPtr(0)}},
		{name: "slow mode too high", input: &settingsBody{SlowMode: intPtr(3601)}, wantField: "slowMode", wantTag: "max"},
		{name: "negative slow mode", input: &settingsBody{SlowMode: intPtr(-1)}, wantField: "slowMode", wantTag: "min"},
		{name: "bad action", input: &settingsBody{Action: "archive"}, wantField: "action", wantTag: "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("failure = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestValidateStruct_IgnoredJSONNameFallsBack(t *testing.T) {
	err := ValidateStruct(&settingsBody{Internal: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Errors()[0].Field(); got != "Internal" {
		t.Errorf("field = %q, want Internal", got)
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single failure", func(t *testing.T) {
		apiErr := ValidateStruct(&messageBody{Content: "hi", Type: "video"}).ToAPIError()
		if apiErr.Code != CodeValidation {
			t.Errorf("code = %q", apiErr.Code)
		}
		if apiErr.Message != "type must be one of: text, image, announcement, system" {
			t.Errorf("message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "type" {
			t.Errorf("details = %v", apiErr.Details)
		}
	})

	t.Run("multiple failures", func(t *testing.T) {
		apiErr := ValidateStruct(&settingsBody{SlowMode: intPtr(-5), Action: "archive"}).ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Fatalf("details = %v", apiErr.Details)
		}
		for _, want := range []string{"slowMode must be at least 0", "action must be one of: delete pin unpin"} {
			if !strings.Contains(apiErr.Message, want) {
				t.Errorf("message %q missing %q", apiErr.Message, want)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Code != CodeValidation || apiErr.Message != "Validation failed" {
			t.Errorf("got %+v", apiErr)
		}
	})
}

func TestTranslateMinMax_StringLength(t *testing.T) {
	err := ValidateStruct(&messageBody{Content: "hi", ReplyToID: strings.Repeat("a", 65)})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "replyToId must be at most 64 characters" {
		t.Errorf("message = %q", got)
	}
}
