// Package darc implements the Distributed Access Rights Control.
//
// The service stores one permission per credential identifier. A permission
// is the set of identities granted for each rule, and it is serialized to
// JSON before being written to the store, so that the resulting state is
// deterministic across nodes.
//
// Documentation Last Review: 19.08.2026
//
package darc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/votela/votela/core/access"
	"github.com/votela/votela/core/store"
	"golang.org/x/xerrors"
)

// Permission is the set of identities granted for each rule of a credential.
type Permission struct {
	rules map[string]*Expression
}

// PermissionOption is the option type to create a permission.
type PermissionOption func(*Permission)

// WithRule is an option to grant a given group access to a rule.
func WithRule(rule string, group ...access.Identity) PermissionOption {
	return func(perm *Permission) {
		perm.Evolve(rule, group...)
	}
}

// NewPermission returns a new empty instance of a permission.
func NewPermission(opts ...PermissionOption) *Permission {
	perm := &Permission{
		rules: make(map[string]*Expression),
	}

	for _, opt := range opts {
		opt(perm)
	}

	return perm
}

// GetRules returns a map of the expressions.
func (perm *Permission) GetRules() map[string]*Expression {
	rules := make(map[string]*Expression)

	for rule, expr := range perm.rules {
		rules[rule] = expr
	}

	return rules
}

// Evolve grants the access to the group of identities for the given rule.
func (perm *Permission) Evolve(rule string, group ...access.Identity) {
	expr, ok := perm.rules[rule]
	if !ok {
		expr = NewExpression()
	}

	expr.Evolve(group)

	perm.rules[rule] = expr
}

// Match returns nil if the group of identities is associated with the rule.
func (perm *Permission) Match(rule string, group ...access.Identity) error {
	if len(group) == 0 {
		return xerrors.New("expect at least one identity")
	}

	expr, ok := perm.rules[rule]
	if !ok {
		return xerrors.Errorf("rule '%s' not found", rule)
	}

	err := expr.Match(group)
	if err != nil {
		return xerrors.Errorf("rule '%s': %v", rule, err)
	}

	return nil
}

// MarshalJSON implements json.Marshaler. The identities of each rule are
// sorted so that the serialization is deterministic.
func (perm *Permission) MarshalJSON() ([]byte, error) {
	rules := make(map[string][]string)

	for rule, expr := range perm.rules {
		matches := make([]string, 0, len(expr.matches))
		for match := range expr.matches {
			matches = append(matches, match)
		}

		sort.Strings(matches)

		rules[rule] = matches
	}

	return json.Marshal(rules)
}

// UnmarshalJSON implements json.Unmarshaler.
func (perm *Permission) UnmarshalJSON(data []byte) error {
	rules := make(map[string][]string)

	err := json.Unmarshal(data, &rules)
	if err != nil {
		return xerrors.Errorf("failed to decode rules: %v", err)
	}

	perm.rules = make(map[string]*Expression)

	for rule, matches := range rules {
		expr := NewExpression()
		for _, match := range matches {
			expr.matches[match] = struct{}{}
		}

		perm.rules[rule] = expr
	}

	return nil
}

// Expression is the set of identities granted for a single rule. Identities
// are stored in their textual form.
type Expression struct {
	matches map[string]struct{}
}

// NewExpression creates a new empty expression.
func NewExpression() *Expression {
	return &Expression{
		matches: make(map[string]struct{}),
	}
}

// Evolve adds the group of identities to the expression.
func (expr *Expression) Evolve(group []access.Identity) {
	for _, ident := range group {
		text, err := ident.MarshalText()
		if err != nil {
			continue
		}

		expr.matches[string(text)] = struct{}{}
	}
}

// Match returns nil when every identity of the group is present in the
// expression.
func (expr *Expression) Match(group []access.Identity) error {
	for _, ident := range group {
		text, err := ident.MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal identity: %v", err)
		}

		_, found := expr.matches[string(text)]
		if !found {
			return xerrors.Errorf("identity %q is not granted", text)
		}
	}

	return nil
}

// Service is an implementation of an access service that will allow one to
// store and verify the accesses of groups of identities.
//
// - implements access.Service
type Service struct{}

// NewService creates a new access service.
func NewService() Service {
	return Service{}
}

// Match implements access.Service. It returns nil if the group of identities
// has access to the given credential, otherwise a meaningful error on the
// reason if it does not have access.
func (srvc Service) Match(store store.Readable, creds access.Credential, idents ...access.Identity) error {
	value, err := store.Get(creds.GetID())
	if err != nil {
		return xerrors.Errorf("store failed: %v", err)
	}

	if value == nil {
		return xerrors.Errorf("permission 0x%x not found", creds.GetID())
	}

	perm := NewPermission()

	err = json.Unmarshal(value, perm)
	if err != nil {
		return xerrors.Errorf("failed to decode permission: %v", err)
	}

	err = perm.Match(creds.GetRule(), idents...)
	if err != nil {
		return err
	}

	return nil
}

// Grant implements access.Service. It updates or creates the permission of
// the credential and grants the access to the group of identities.
func (srvc Service) Grant(store store.Snapshot, creds access.Credential, idents ...access.Identity) error {
	value, err := store.Get(creds.GetID())
	if err != nil {
		return xerrors.Errorf("store failed: %v", err)
	}

	perm := NewPermission()

	if len(value) > 0 {
		err = json.Unmarshal(value, perm)
		if err != nil {
			return xerrors.Errorf("failed to decode permission: %v", err)
		}
	}

	perm.Evolve(creds.GetRule(), idents...)

	value, err = json.Marshal(perm)
	if err != nil {
		return xerrors.Errorf("failed to encode permission: %v", err)
	}

	err = store.Set(creds.GetID(), value)
	if err != nil {
		return xerrors.Errorf("store failed to write: %v", err)
	}

	return nil
}

// String returns a readable representation of a permission.
func (perm *Permission) String() string {
	rules := make([]string, 0, len(perm.rules))

	for rule := range perm.rules {
		rules = append(rules, rule)
	}

	sort.Strings(rules)

	return fmt.Sprintf("Permission%v", rules)
}
