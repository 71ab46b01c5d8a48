package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	citizen := &Session{UserID: "u1", Email: "c@example.com", FullName: "Citizen One", Role: RoleCitizen}
	officer := &Session{UserID: "u2", Email: "o@example.com", FullName: "Officer Two", Role: RoleOfficer}
	admin := &Session{UserID: "u3", Email: "a@example.com", FullName: "Admin Three", Role: RoleAdmin}

	tests := []struct {
		name     string
		session  *Session
		loading  bool
		required []Role
		want     Verdict
	}{
		{"LoadingYieldsPending", citizen, true, []Role{RoleOfficer}, VerdictPending},
		{"LoadingWithoutSessionYieldsPending", nil, true, nil, VerdictPending},
		{"NoSessionRedirects", nil, false, []Role{RoleCitizen}, VerdictRedirect},
		{"NoSessionNoRequirementRedirects", nil, false, nil, VerdictRedirect},
		{"EmptyRequirementAllowsAnyRole", citizen, false, nil, VerdictAllow},
		{"MatchingRoleAllows", officer, false, []Role{RoleOfficer}, VerdictAllow},
		{"AnyOfSeveralRolesAllows", admin, false, []Role{RoleOfficer, RoleAdmin}, VerdictAllow},
		{"MismatchedRoleDenies", citizen, false, []Role{RoleOfficer}, VerdictDeny},
		{"AdminNotImpliedByOfficer", officer, false, []Role{RoleAdmin}, VerdictDeny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.session, tt.loading, tt.required...)
			assert.Equal(t, tt.want, d.Verdict)
		})
	}
}

func TestAuthorizeDecisionCarriesRoles(t *testing.T) {
	citizen := &Session{UserID: "u1", Role: RoleCitizen}

	d := Authorize(citizen, false, RoleOfficer, RoleAdmin)
	assert.Equal(t, VerdictDeny, d.Verdict)
	assert.Equal(t, RoleCitizen, d.ActualRole)
	assert.Equal(t, []Role{RoleOfficer, RoleAdmin}, d.RequiredRoles)
}

func TestAuthorizeIsPure(t *testing.T) {
	officer := &Session{UserID: "u2", Role: RoleOfficer}

	first := Authorize(officer, false, RoleOfficer)
	second := Authorize(officer, false, RoleOfficer)
	assert.Equal(t, first, second)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleCitizen))
	assert.True(t, ValidRole(RoleOfficer))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole(Role("superuser")))
	assert.False(t, ValidRole(Role("")))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "pending", VerdictPending.String())
	assert.Equal(t, "allow", VerdictAllow.String())
	assert.Equal(t, "redirect", VerdictRedirect.String())
	assert.Equal(t, "deny", VerdictDeny.String())
}
