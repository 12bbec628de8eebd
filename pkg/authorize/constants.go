package authorize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type (
	Action   string
	Resource string
	Role     string
	Domain   string
)

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	// ActionManage matches the five actions above in DefaultModel.
	ActionManage Action = "manage"

	ActionJoin     Action = "join"
	ActionAccept   Action = "accept"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"

	WildcardAction Action = "*"
)

const (
	ResourceUser           Resource = "user"
	ResourceAuthSession    Resource = "auth_session"
	ResourceSession        Resource = "session"
	ResourcePatientProfile Resource = "patient_profile"
	ResourceReport         Resource = "report"
	ResourceTranscript     Resource = "transcript"
	ResourceNotification   Resource = "notification"
	ResourceActionLog      Resource = "action_log"

	WildcardResource Resource = "*"
)

// Roles are casbin policy subjects. Users receive them through grouping rows.
const (
	RoleSysAdmin   Role = "role:sys:admin"
	RoleSysDoctor  Role = "role:sys:doctor"
	RoleSysPatient Role = "role:sys:patient"
	// RoleUserSelf is held by every user in their own user:<id> domain.
	RoleUserSelf Role = "role:user:self"

	WildcardRole Role = "*"
)

const (
	DomainSys      Domain = "sys"
	WildcardDomain Domain = "*"

	userDomainPrefix = "user:"
)

var (
	KnownActions = set(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList, ActionManage,
		ActionJoin, ActionAccept, ActionCancel, ActionComplete)
	KnownResources = set(ResourceUser, ResourceAuthSession, ResourceSession, ResourcePatientProfile,
		ResourceReport, ResourceTranscript, ResourceNotification, ResourceActionLog)
	KnownRoles = set(RoleSysAdmin, RoleSysDoctor, RoleSysPatient, RoleUserSelf)
)

func set[T comparable](vs ...T) map[T]struct{} {
	m := make(map[T]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}

// Values of users.role.
const (
	AccountRolePatient = "patient"
	AccountRoleDoctor  = "doctor"
	AccountRoleAdmin   = "admin"
)

// RBACRoleForAccount maps a users.role value onto its sys-domain role.
func RBACRoleForAccount(accountRole string) (Role, error) {
	switch strings.ToLower(accountRole) {
	case AccountRolePatient:
		return RoleSysPatient, nil
	case AccountRoleDoctor:
		return RoleSysDoctor, nil
	case AccountRoleAdmin:
		return RoleSysAdmin, nil
	}
	return "", fmt.Errorf("%w: unknown account role %q", ErrInvalidArgs, accountRole)
}

func UserDomain(userID string) Domain {
	return Domain(userDomainPrefix + userID)
}

// IsValidDomain accepts sys, the wildcard, and user:<uuid>.
func IsValidDomain(d Domain) bool {
	if d == DomainSys || d == WildcardDomain {
		return true
	}
	id, ok := strings.CutPrefix(string(d), userDomainPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is a concrete principal, always a user id.
type GroupSubject string

// PermissionPolicy is one p row: role, domain, resource, action, effect.
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}

// DefaultModel is used when no model file is configured. A deny row beats any
// allow, and lifecycle actions are never implied by manage.
const DefaultModel = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _
g2 = _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = (g(r.sub, p.sub, r.dom) || g2(r.sub, p.sub)) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || keyMatch2(r.obj, p.obj)) && (p.act == "*" || keyMatch(r.act, p.act) || (p.act == "manage" && regexMatch(r.act, "^(create|read|update|delete|list)$")))
`
