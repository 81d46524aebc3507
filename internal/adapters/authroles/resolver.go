package authroles

import (
	domainauth "github.com/target/rolegate/internal/domain/auth"
)

// FirstMatchResolver maps group memberships to the first matching role of the registry.
// Registry order is significant: when a user belongs to several configured groups the
// earliest role in the document wins.
type FirstMatchResolver struct{}

func (FirstMatchResolver) Resolve(groups []string, roles []domainauth.Role) domainauth.Role {
	return Resolve(groups, roles)
}

// Resolve returns the first role whose ad_group is in groups, or the no_access sentinel.
func Resolve(groups []string, roles []domainauth.Role) domainauth.Role {
	if len(groups) == 0 || len(roles) == 0 {
		return domainauth.NoAccessRole
	}
	member := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		member[g] = struct{}{}
	}
	for _, r := range roles {
		if r.ADGroup == "" {
			continue
		}
		if _, ok := member[r.ADGroup]; ok {
			return r
		}
	}
	return domainauth.NoAccessRole
}
