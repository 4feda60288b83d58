package service

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sardorbek21324/Kairos-team/internal/models"
	"github.com/sardorbek21324/Kairos-team/pkg/config"
	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// PolicyScope groups the guarded entry points.
type PolicyScope string

const (
	ScopeShooting PolicyScope = "shooting"
	ScopeEditing  PolicyScope = "editing"
	ScopePublish  PolicyScope = "publish"
	ScopeAdmin    PolicyScope = "admin"
)

// PolicyStage is the guarded step within a scope.
type PolicyStage string

const (
	PolicySubmit  PolicyStage = "submit"
	PolicyReview  PolicyStage = "review"
	PolicyFinish  PolicyStage = "finish"
	PolicyConfirm PolicyStage = "confirm"
	PolicySetup   PolicyStage = "setup"
)

// Role names accepted in the policy file.
const (
	RoleOperator = "operator"
	RoleEditor   = "editor"
	RoleCEO      = "ceo"
	RoleStaff    = "staff"
)

//go:embed policy.yaml
var defaultPolicy []byte

// PolicyRule is one row of the permission table.
type PolicyRule struct {
	Scope PolicyScope `yaml:"scope"`
	Stage PolicyStage `yaml:"stage"`
	Roles []string    `yaml:"roles"`
}

type policyDocument struct {
	Rules []PolicyRule `yaml:"rules"`
}

type policyKey struct {
	scope PolicyScope
	stage PolicyStage
}

// PermissionPolicy resolves the roles allowed at each (scope, stage) pair.
// Pairs missing from the table deny everyone.
type PermissionPolicy struct {
	rules    []PolicyRule
	resolved map[policyKey][]uint64
}

// LoadPermissionPolicy reads the policy table from path, or the embedded
// default when path is empty.
func LoadPermissionPolicy(path string, roles config.RoleConfig) (*PermissionPolicy, error) {
	data := defaultPolicy
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file: %w", err)
		}
		data = raw
	}
	return ParsePermissionPolicy(data, roles)
}

// ParsePermissionPolicy decodes a YAML policy table.
func ParsePermissionPolicy(data []byte, roles config.RoleConfig) (*PermissionPolicy, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("decode policy: no rules defined")
	}

	policy := &PermissionPolicy{
		rules:    doc.Rules,
		resolved: make(map[policyKey][]uint64, len(doc.Rules)),
	}
	for _, rule := range doc.Rules {
		key := policyKey{scope: rule.Scope, stage: rule.Stage}
		if _, dup := policy.resolved[key]; dup {
			return nil, fmt.Errorf("decode policy: duplicate rule %s/%s", rule.Scope, rule.Stage)
		}
		ids := make([]uint64, 0, len(rule.Roles))
		for _, name := range rule.Roles {
			resolved, err := resolveRole(name, roles)
			if err != nil {
				return nil, fmt.Errorf("decode policy: rule %s/%s: %w", rule.Scope, rule.Stage, err)
			}
			ids = append(ids, resolved...)
		}
		policy.resolved[key] = dedupeIDs(ids)
	}
	return policy, nil
}

func resolveRole(name string, roles config.RoleConfig) ([]uint64, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RoleOperator:
		return nonZero(roles.Operator), nil
	case RoleEditor:
		return nonZero(roles.Editor), nil
	case RoleCEO:
		return nonZero(roles.CEO), nil
	case RoleStaff:
		return append([]uint64(nil), roles.Staff...), nil
	default:
		return nil, fmt.Errorf("unknown role %q", name)
	}
}

func nonZero(id uint64) []uint64 {
	if id == 0 {
		return nil
	}
	return []uint64{id}
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// HasAnyRole reports whether actor holds at least one of the required roles.
func HasAnyRole(actor models.Actor, required []uint64) bool {
	for _, want := range required {
		for _, held := range actor.RoleIDs {
			if held == want {
				return true
			}
		}
	}
	return false
}

// RequiredRoles returns the role IDs allowed at scope/stage.
func (p *PermissionPolicy) RequiredRoles(scope PolicyScope, stage PolicyStage) []uint64 {
	if p == nil {
		return nil
	}
	return append([]uint64(nil), p.resolved[policyKey{scope: scope, stage: stage}]...)
}

// Allows reports whether actor may act at scope/stage.
func (p *PermissionPolicy) Allows(scope PolicyScope, stage PolicyStage, actor models.Actor) bool {
	if !actor.InGuild {
		return false
	}
	return HasAnyRole(actor, p.RequiredRoles(scope, stage))
}

// Guard returns a forbidden error unless actor may act at scope/stage.
func (p *PermissionPolicy) Guard(scope PolicyScope, stage PolicyStage, actor models.Actor) error {
	if p.Allows(scope, stage, actor) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "")
}

// Rules returns the table sorted by scope and stage.
func (p *PermissionPolicy) Rules() []PolicyRule {
	if p == nil {
		return nil
	}
	out := make([]PolicyRule, len(p.rules))
	copy(out, p.rules)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}
