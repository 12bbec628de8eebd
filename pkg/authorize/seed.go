package authorize

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultPolicies is the baseline RBAC policy set. Ownership (a patient may
// only touch their own session) is enforced by the services, not here.
func DefaultPolicies() []PermissionPolicy {
	return []PermissionPolicy{
		// Admin: god mode (also covered by the superadmin bypass)
		{RoleSysAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},

		// Doctor: runs sessions and writes reports
		{RoleSysDoctor, DomainSys, ResourceSession, ActionManage, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceSession, ActionAccept, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceSession, ActionCancel, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceSession, ActionComplete, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceTranscript, ActionManage, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourcePatientProfile, ActionRead, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourcePatientProfile, ActionList, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceReport, ActionManage, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceUser, ActionRead, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceNotification, ActionManage, EffectAllow},
		{RoleSysDoctor, DomainSys, ResourceSession, ActionDelete, EffectDeny},
		{RoleSysDoctor, DomainSys, ResourceReport, ActionDelete, EffectDeny},

		// Patient: books, joins and cancels their own sessions
		{RoleSysPatient, DomainSys, ResourceSession, ActionCreate, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceSession, ActionRead, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceSession, ActionList, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceSession, ActionUpdate, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceSession, ActionCancel, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceSession, ActionJoin, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceTranscript, ActionRead, EffectAllow},
		{RoleSysPatient, DomainSys, ResourcePatientProfile, ActionCreate, EffectAllow},
		{RoleSysPatient, DomainSys, ResourcePatientProfile, ActionRead, EffectAllow},
		{RoleSysPatient, DomainSys, ResourcePatientProfile, ActionUpdate, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceReport, ActionRead, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceReport, ActionList, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceNotification, ActionManage, EffectAllow},
		{RoleSysPatient, DomainSys, ResourceUser, ActionList, EffectAllow},

		// UserSelf: full control over own account and login sessions
		{RoleUserSelf, WildcardDomain, ResourceUser, ActionManage, EffectAllow},
		{RoleUserSelf, WildcardDomain, ResourceAuthSession, ActionManage, EffectAllow},
	}
}

// SeedDefaultPolicies sets up the baseline RBAC policies for the system.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()

	policies := DefaultPolicies()
	for _, p := range policies {
		added, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if added {
			logger.Debug("added policy", "role", p.Subject, "domain", p.Domain, "resource", p.Object, "action", p.Action)
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(policies))
	return nil
}

// AssignAccountRoles grants a new user their account role in the sys domain
// and the self role in their private domain. Call this when creating a user.
func AssignAccountRoles(ctx context.Context, auth IAuthorization, userID, accountRole string) error {
	role, err := RBACRoleForAccount(accountRole)
	if err != nil {
		return err
	}

	subject := GroupSubject(userID)
	if _, err := auth.AddRoleForUserInDomain(ctx, subject, role, DomainSys); err != nil {
		return err
	}
	_, err = auth.AddRoleForUserInDomain(ctx, subject, RoleUserSelf, UserDomain(userID))
	return err
}

// SyncAccountRole makes accountRole the only account role the user holds in
// the sys domain.
func SyncAccountRole(ctx context.Context, auth IAuthorization, userID, accountRole string) error {
	want, err := RBACRoleForAccount(accountRole)
	if err != nil {
		return err
	}

	subject := GroupSubject(userID)
	current, err := auth.GetRolesForUserInDomain(ctx, subject, DomainSys)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range current {
		if r == want {
			continue
		}
		if _, err := auth.RemoveRoleForUserInDomain(ctx, subject, r, DomainSys); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := auth.AddRoleForUserInDomain(ctx, subject, want, DomainSys); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RevokeAllRoles removes every grouping row of a deleted user.
func RevokeAllRoles(ctx context.Context, auth IAuthorization, userID string) error {
	subject := GroupSubject(userID)
	current, err := auth.GetRolesForUserInDomain(ctx, subject, DomainSys)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range current {
		if _, err := auth.RemoveRoleForUserInDomain(ctx, subject, r, DomainSys); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := auth.RemoveRoleForUserInDomain(ctx, subject, RoleUserSelf, UserDomain(userID)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
