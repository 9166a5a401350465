package authz_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tabauth/internal/auth/authz"
	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func rolePtr(r domain.Role) *domain.Role { return &r }

// backendRules is the route table of the point-of-sale backend that
// consults this service.
func backendRules() []authz.Rule {
	return []authz.Rule{
		{Pattern: "/auth/**", MinRole: domain.RolePublic},
		{Pattern: "/users/register/**", MinRole: domain.RoleModerator},
		{Pattern: "/users/{userId}", Method: http.MethodGet, MinRole: domain.RoleUser},
		{Pattern: "/users/{userId}", Method: http.MethodPut, MinRole: domain.RoleModerator},
		{Pattern: "/users/{userId}", Method: http.MethodPatch, MinRole: domain.RoleModerator},
		{Pattern: "/users/{userId}", Method: http.MethodDelete, MinRole: domain.RoleModerator},
		{Pattern: "/users", Method: http.MethodGet, MinRole: domain.RoleModerator},
		{Pattern: "/stock/allStocks", MinRole: domain.RolePublic},
	}
}

func TestDecide_RoleComparison(t *testing.T) {
	p := authz.NewPolicy(backendRules()...)

	d := p.Decide(http.MethodGet, "/users", rolePtr(domain.RoleUser))
	require.False(t, d.Allowed)
	require.Equal(t, domain.RoleModerator, d.Required)
	require.ErrorIs(t, d.Err(), authz.ErrInsufficientRole)

	d = p.Decide(http.MethodGet, "/users", rolePtr(domain.RoleModerator))
	require.True(t, d.Allowed)
	require.NoError(t, d.Err())

	d = p.Decide(http.MethodGet, "/users", rolePtr(domain.RoleAdmin))
	require.True(t, d.Allowed)
}

func TestDecide_UnmatchedNeedsAuthenticationOnly(t *testing.T) {
	p := authz.NewPolicy(backendRules()...)

	d := p.Decide(http.MethodPost, "/reports/daily", rolePtr(domain.RoleUser))
	require.True(t, d.Allowed)
	require.Equal(t, domain.RoleUser, d.Required)
	require.Empty(t, d.Rule)

	d = p.Decide(http.MethodPost, "/reports/daily", nil)
	require.False(t, d.Allowed)
	require.ErrorIs(t, d.Err(), authz.ErrUnauthenticated)
}

func TestDecide_PublicRoutes(t *testing.T) {
	p := authz.NewPolicy(backendRules()...)

	for _, path := range []string{"/auth/login", "/auth/refresh", "/auth", "/stock/allStocks"} {
		d := p.Decide(http.MethodPost, path, nil)
		require.True(t, d.Allowed, path)
		require.NoError(t, d.Err(), path)
	}
}

func TestBackendRules_Table(t *testing.T) {
	p := authz.NewPolicy(backendRules()...)

	tests := []struct {
		method string
		path   string
		want   domain.Role
	}{
		{http.MethodGet, "/users/42", domain.RoleUser},
		{http.MethodPut, "/users/42", domain.RoleModerator},
		{http.MethodPatch, "/users/42", domain.RoleModerator},
		{http.MethodDelete, "/users/42", domain.RoleModerator},
		{http.MethodPost, "/users/42", domain.RoleUser},
		{http.MethodPost, "/users/register", domain.RoleModerator},
		{http.MethodPost, "/users/register/bulk", domain.RoleModerator},
		{http.MethodGet, "/users/", domain.RoleModerator},
		{http.MethodGet, "/users/42/avatar", domain.RoleUser},
		{http.MethodGet, "/stock/allStocks/extra", domain.RoleUser},
		{"get", "/users", domain.RoleModerator},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got, _ := p.Required(tt.method, tt.path)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	p := authz.NewPolicy(
		authz.Rule{Pattern: "/admin/*/audit", MinRole: domain.RoleSupervisor},
		authz.Rule{Pattern: "/admin/**", MinRole: domain.RoleAdmin},
	)

	got, rule := p.Required(http.MethodGet, "/admin/tills/audit")
	require.Equal(t, domain.RoleSupervisor, got)
	require.Equal(t, "/admin/*/audit", rule)

	got, rule = p.Required(http.MethodGet, "/admin/tills")
	require.Equal(t, domain.RoleAdmin, got)
	require.Equal(t, "/admin/**", rule)
}

func TestPolicy_NilAndEmpty(t *testing.T) {
	var nilPolicy *authz.Policy
	got, _ := nilPolicy.Required(http.MethodGet, "/anything")
	require.Equal(t, domain.MinAssignableRole, got)

	d := authz.NewPolicy().Decide(http.MethodGet, "/", rolePtr(domain.RoleUser))
	require.True(t, d.Allowed)
}
