// Package guardrail decides who may run privileged actions and checks that
// proposed arguments are complete and safe before a confirmation exists.
//
// Arguments arrive from the language model and are treated as untrusted.
package guardrail

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/mbd888/riskops/internal/access"
)

// Privileged action names.
const (
	ActionHaltTrading   = "halt_trading"
	ActionModifyLimits  = "modify_limits"
	ActionOverrideAlert = "override_alert"
	ActionForceUnwind   = "force_unwind"
	ActionChangeConfig  = "change_config"
	ActionResumeTrading = "resume_trading"

	// ActionRunStress is validated but not privileged.
	ActionRunStress = "run_stress"
)

// MinReasonLength is the minimum trimmed length of a halt reason.
const MinReasonLength = 10

var privileged = map[string][]access.Role{
	ActionHaltTrading:   {access.RoleRisk, access.RoleAdmin},
	ActionResumeTrading: {access.RoleRisk, access.RoleAdmin},
	ActionModifyLimits:  {access.RoleRisk, access.RoleAdmin},
	ActionOverrideAlert: {access.RoleRisk, access.RoleAdmin},
	ActionForceUnwind:   {access.RoleAdmin},
	ActionChangeConfig:  {access.RoleAdmin},
}

var everyone = []access.Role{access.RoleUser, access.RoleRisk, access.RoleAdmin}

// IsPrivileged reports whether action is role-restricted.
func IsPrivileged(action string) bool {
	_, ok := privileged[action]
	return ok
}

// RequiredRoles lists the roles allowed to run action. Non-privileged
// actions are open to every role.
func RequiredRoles(action string) []access.Role {
	if roles, ok := privileged[action]; ok {
		return slices.Clone(roles)
	}
	return slices.Clone(everyone)
}

// RoleResolver looks up a user's current role.
type RoleResolver interface {
	RoleOf(userID string) access.Role
}

// Policy evaluates the action table against live roles.
type Policy struct {
	roles RoleResolver
}

// NewPolicy creates a policy backed by roles.
func NewPolicy(roles RoleResolver) *Policy {
	return &Policy{roles: roles}
}

// CanExecute reports whether userID's current role may run action.
func (p *Policy) CanExecute(userID, action string) bool {
	allowed, ok := privileged[action]
	if !ok {
		return true
	}
	return slices.Contains(allowed, p.roles.RoleOf(userID))
}

// Validate checks the arguments of action. Actions without a validator pass.
func Validate(action string, args map[string]any) (bool, string) {
	switch action {
	case ActionHaltTrading:
		return validateHalt(args)
	case ActionRunStress:
		return validateStress(args)
	default:
		return true, ""
	}
}

func validateHalt(args map[string]any) (bool, string) {
	if stringArg(args, "desk") == "" && stringArg(args, "book") == "" && stringArg(args, "symbol") == "" {
		return false, "At least one of desk, book, or symbol must be specified"
	}
	if utf8.RuneCountInString(stringArg(args, "reason")) < MinReasonLength {
		return false, "Reason must be at least 10 characters"
	}
	return true, ""
}

func validateStress(args map[string]any) (bool, string) {
	if stringArg(args, "book") == "" {
		return false, "Book is required for stress testing"
	}
	raw, ok := args["shock_pct"]
	if !ok || raw == nil {
		return true, ""
	}
	shock, ok := number(raw)
	if !ok || math.IsNaN(shock) {
		return false, "shock_pct must be a number"
	}
	if shock < -1.0 || shock > 1.0 {
		return false, "shock_pct must be between -1.0 and 1.0"
	}
	return true, ""
}

// stringArg returns the trimmed string value of key, or "" when absent or
// not a string.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
