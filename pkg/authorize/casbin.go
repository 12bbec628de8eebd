package authorize

import (
	"context"
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// IAuthorization answers RBAC questions and maintains the role assignments
// and permission rows behind them. Ownership of a particular session, report
// or profile is never decided here; services check that themselves.
type IAuthorization interface {
	Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error)
	// MustEnforce returns ErrForbidden when Enforce says no.
	MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error

	AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error)

	AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)
}

// Authorization implements IAuthorization on a casbin enforcer.
type Authorization struct {
	enforcer *casbin.DistributedEnforcer
	bypass   bool
}

// NewAuthorization loads the current policy into e. With SuperadminBypass,
// sys-admins pass every check without consulting the policy.
func NewAuthorization(e *casbin.DistributedEnforcer, cfg Config) (IAuthorization, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: enforcer is nil", ErrInvalidArgs)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return &Authorization{enforcer: e, bypass: cfg.SuperadminBypass}, nil
}

func (a *Authorization) Enforce(_ context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	if subject == "" {
		return false, fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	if err := errors.Join(checkDomain(domain), checkResource(object), checkAction(action)); err != nil {
		return false, err
	}

	if a.bypass && a.enforcer.HasGroupingPolicy(string(subject), string(RoleSysAdmin), string(DomainSys)) {
		return true, nil
	}
	return a.enforcer.Enforce(string(subject), string(domain), string(object), string(action))
}

func (a *Authorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	return mustEnforce(ctx, a, subject, domain, object, action)
}

func mustEnforce(ctx context.Context, a IAuthorization, subject GroupSubject, domain Domain, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, subject, domain, object, action)
	switch {
	case err != nil:
		return err
	case !ok:
		return ErrForbidden
	}
	return nil
}

func (a *Authorization) AddRoleForUserInDomain(_ context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if subject == "" {
		return false, fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	if err := errors.Join(checkRole(role), checkDomain(domain)); err != nil {
		return false, err
	}
	return a.enforcer.AddGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) RemoveRoleForUserInDomain(_ context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if subject == "" || role == "" {
		return false, fmt.Errorf("%w: empty subject or role", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.RemoveGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) GetRolesForUserInDomain(_ context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return nil, err
	}
	names := a.enforcer.GetRolesForUserInDomain(string(subject), string(domain))
	roles := make([]Role, len(names))
	for i, n := range names {
		roles[i] = Role(n)
	}
	return roles, nil
}

// AddPermission stores the row p, role, domain, object, action, effect.
func (a *Authorization) AddPermission(_ context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if effect != EffectAllow && effect != EffectDeny {
		return false, fmt.Errorf("%w: invalid effect %q", ErrInvalidArgs, effect)
	}
	if err := errors.Join(checkRole(role), checkDomain(domain), checkResource(object), checkAction(action)); err != nil {
		return false, err
	}
	return a.enforcer.AddPolicy(string(role), string(domain), string(object), string(action), string(effect))
}

func checkDomain(d Domain) error {
	if !IsValidDomain(d) {
		return fmt.Errorf("%w: invalid domain %q", ErrInvalidArgs, d)
	}
	return nil
}

func checkRole(r Role) error {
	if _, ok := KnownRoles[r]; !ok && r != WildcardRole {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgs, r)
	}
	return nil
}

func checkResource(r Resource) error {
	if _, ok := KnownResources[r]; !ok && r != WildcardResource {
		return fmt.Errorf("%w: unknown resource %q", ErrInvalidArgs, r)
	}
	return nil
}

func checkAction(a Action) error {
	if _, ok := KnownActions[a]; !ok && a != WildcardAction {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidArgs, a)
	}
	return nil
}
