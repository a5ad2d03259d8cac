// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package authz holds the chat permission matrix, enforced with Casbin.
//
// The matrix is fixed: each chat role is granted a set of actions on the
// "chat" object and roles inherit upward (organizer > moderator > member).
// The model and policy are embedded; a policy file may replace the embedded
// policy for local experiments.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// ObjectChat is the only policy object.
const ObjectChat = "chat"

// Chat actions.
const (
	ActionSend      = "send"
	ActionDeleteOwn = "delete_own"
	ActionDeleteAny = "delete_any"
	ActionPin       = "pin"
	ActionMute      = "mute"
	ActionAnnounce  = "announce"
	ActionSettings  = "settings"
	ActionAudit     = "audit"
)

// Actions lists every action in the matrix.
var Actions = []string{
	ActionSend, ActionDeleteOwn, ActionDeleteAny, ActionPin,
	ActionMute, ActionAnnounce, ActionSettings, ActionAudit,
}

// EnforcerConfig holds configuration for the enforcer.
type EnforcerConfig struct {
	// PolicyPath replaces the embedded policy when set and present.
	PolicyPath string

	// CacheEnabled enables decision caching.
	CacheEnabled bool

	// CacheTTL is how long to cache decisions.
	CacheTTL time.Duration
}

// EnforcerConfigFromSecurity builds the enforcer configuration from the
// security settings.
func EnforcerConfigFromSecurity(sec *config.SecurityConfig) *EnforcerConfig {
	cfg := DefaultEnforcerConfig()
	cfg.PolicyPath = sec.AuthzPolicyPath
	return cfg
}

// DefaultEnforcerConfig returns default configuration.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}

// Enforcer wraps the Casbin enforcer.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEnforcer creates the chat permission enforcer.
func NewEnforcer(cfg *EnforcerConfig) (*Enforcer, error) {
	if cfg == nil {
		cfg = DefaultEnforcerConfig()
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{enforcer: enforcer}
	if cfg.CacheEnabled {
		e.cache = newDecisionCache(cfg.CacheTTL)
	}
	return e, nil
}

// loadPolicy parses policy CSV lines ("p, sub, obj, act" and "g, child, parent").
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rule := parts[1:]

		switch parts[0] {
		case "p":
			if len(rule) != 3 {
				return fmt.Errorf("malformed policy line %q", line)
			}
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) != 2 {
				return fmt.Errorf("malformed grouping line %q", line)
			}
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		default:
			return fmt.Errorf("unknown policy type %q", parts[0])
		}
	}
	return nil
}

// Enforce checks whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(role, object, action); ok {
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.cache != nil {
		e.cache.set(role, object, action, allowed)
	}
	return allowed, nil
}

// Allowed reports whether a chat role may perform action. Enforcement
// errors deny.
func (e *Enforcer) Allowed(role, action string) bool {
	allowed, err := e.Enforce(role, ObjectChat, action)
	return err == nil && allowed
}

// Permissions returns the full action set for role.
func (e *Enforcer) Permissions(role string) map[string]bool {
	out := make(map[string]bool, len(Actions))
	for _, a := range Actions {
		out[a] = e.Allowed(role, a)
	}
	return out
}

// Close stops background cache cleanup.
func (e *Enforcer) Close() {
	if e.cache != nil {
		e.cache.stop()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
