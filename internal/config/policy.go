package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"
)

// AccessPolicy maps protected path prefixes to the roles allowed behind them.
type AccessPolicy struct {
	Rules []AccessRule `yaml:"rules"`
}

// AccessRule grants access under Prefix to holders of any of Roles.
type AccessRule struct {
	Prefix string            `yaml:"prefix"`
	Roles  []domain.RoleName `yaml:"roles"`
}

// LoadAccessPolicy reads a YAML policy file. An empty path yields the default
// policy built from fallbackPrefixes, each requiring ADMIN.
func LoadAccessPolicy(path string, fallbackPrefixes []string) (*AccessPolicy, error) {
	if path == "" {
		return DefaultAccessPolicy(fallbackPrefixes), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access policy: %w", err)
	}

	var policy AccessPolicy
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("parse access policy: %w", err)
	}
	if err := policy.normalize(); err != nil {
		return nil, fmt.Errorf("invalid access policy: %w", err)
	}
	return &policy, nil
}

// DefaultAccessPolicy protects each prefix for administrators only.
func DefaultAccessPolicy(prefixes []string) *AccessPolicy {
	policy := &AccessPolicy{}
	for _, prefix := range prefixes {
		policy.Rules = append(policy.Rules, AccessRule{
			Prefix: strings.TrimRight(prefix, "/"),
			Roles:  []domain.RoleName{domain.RoleAdmin},
		})
	}
	return policy
}

func (p *AccessPolicy) normalize() error {
	if len(p.Rules) == 0 {
		return errors.New("at least one rule is required")
	}
	for i := range p.Rules {
		rule := &p.Rules[i]
		if !strings.HasPrefix(rule.Prefix, "/") {
			return fmt.Errorf("rule %d: prefix %q must start with /", i, rule.Prefix)
		}
		if rule.Prefix != "/" {
			rule.Prefix = strings.TrimRight(rule.Prefix, "/")
		}
		if len(rule.Roles) == 0 {
			return fmt.Errorf("rule %d: roles are required", i)
		}
		for j, role := range rule.Roles {
			parsed, err := domain.ParseRoleName(string(role))
			if err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
			rule.Roles[j] = parsed
		}
	}
	return nil
}

// Prefixes returns every protected prefix.
func (p *AccessPolicy) Prefixes() []string {
	out := make([]string, 0, len(p.Rules))
	for _, rule := range p.Rules {
		out = append(out, rule.Prefix)
	}
	return out
}

// Match returns the rule with the longest prefix covering path.
func (p *AccessPolicy) Match(path string) (AccessRule, bool) {
	var (
		best  AccessRule
		found bool
	)
	for _, rule := range p.Rules {
		if !PathHasPrefix(path, rule.Prefix) {
			continue
		}
		if !found || len(rule.Prefix) > len(best.Prefix) {
			best, found = rule, true
		}
	}
	return best, found
}

// PathHasPrefix matches prefix on a path-segment boundary, so "/admin" covers
// "/admin" and "/admin/users" but not "/administrator".
func PathHasPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	prefix = strings.TrimRight(prefix, "/")
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
