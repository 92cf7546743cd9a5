package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func strPtr(s string) *string { return &s }

func TestMatchesOwnerTeacherClaim(t *testing.T) {
	ownerID := "018f1c6a-2b3c-7def-8abc-0123456789ab"

	assert.True(t, MatchesOwner("teacher:"+ownerID, strPtr(ownerID), nil))
	assert.False(t, MatchesOwner("teacher:"+ownerID, strPtr("018f1c6a-2b3c-7def-8abc-0123456789ff"), nil))
}

func TestMatchesOwnerAdminClaim(t *testing.T) {
	ownerID := "018f1c6a-2b3c-7def-8abc-0123456789ab"

	assert.True(t, MatchesOwner("admin:"+ownerID, strPtr(ownerID), nil))
	assert.False(t, MatchesOwner("admin:"+ownerID, strPtr("other"), nil))
}

func TestMatchesOwnerGeneratedIDTakesStrictPath(t *testing.T) {
	// Account ids are minted as version-7 UUIDs, so live claims must satisfy
	// the strict alternative without falling through to the loose one.
	id, err := uuid.NewV7()
	require.NoError(t, err)
	ownerID := id.String()

	assert.Regexp(t, teacherStrict, "teacher:"+ownerID)
	assert.Regexp(t, adminStrict, "admin:"+ownerID)
	assert.True(t, MatchesOwner("teacher:"+ownerID, strPtr(ownerID), nil))
}

func TestMatchesOwnerLooseFallback(t *testing.T) {
	// Not a version-7 UUID shape, still extractable via the loose pattern.
	assert.True(t, MatchesOwner("teacher:abc", strPtr("abc"), nil))
	assert.False(t, MatchesOwner("teacher:abc", strPtr("xyz"), nil))
}

func TestMatchesOwnerRejectsNonOwnerClaims(t *testing.T) {
	owner := strPtr("abc")

	for _, claim := range []string{"", "student", "abc", "teacher:", "admin:", "owner:abc", "teacher abc"} {
		assert.False(t, MatchesOwner(claim, owner, nil), "claim %q must not match", claim)
	}
}

func TestMatchesOwnerNilOwnerLogsError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	assert.False(t, MatchesOwner("teacher:abc", nil, logger))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "nil owner id")
}

func TestMatchesOwnerNilOwnerWithoutLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.False(t, MatchesOwner("teacher:abc", nil, nil))
	})
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		claim   string
		want    Role
		wantErr bool
	}{
		{claim: "student", want: Role{Kind: KindStudent}},
		{claim: "", want: Role{Kind: KindStudent}},
		{claim: "teacher:abc", want: Role{Kind: KindTeacher, OwnerID: "abc"}},
		{claim: "admin:018f1c6a-2b3c-7def-8abc-0123456789ab", want: Role{Kind: KindAdmin, OwnerID: "018f1c6a-2b3c-7def-8abc-0123456789ab"}},
		{claim: "principal:abc", wantErr: true},
		{claim: "teacher:zzz", wantErr: true},
	}

	for _, tc := range tests {
		role, err := ParseRole(tc.claim)
		if tc.wantErr {
			assert.Error(t, err, "claim %q", tc.claim)
			continue
		}
		require.NoError(t, err, "claim %q", tc.claim)
		assert.Equal(t, tc.want, role, "claim %q", tc.claim)
	}
}

func TestRoleMatches(t *testing.T) {
	assert.True(t, Role{Kind: KindTeacher, OwnerID: "abc"}.Matches("abc"))
	assert.False(t, Role{Kind: KindTeacher, OwnerID: "abc"}.Matches("xyz"))
	assert.False(t, Role{Kind: KindStudent}.Matches("abc"))
	assert.False(t, Role{Kind: KindAdmin}.Matches(""))
}

func TestRoleClaimRoundTrip(t *testing.T) {
	for _, role := range []Role{
		{Kind: KindStudent},
		{Kind: KindTeacher, OwnerID: "018f1c6a-2b3c-7def-8abc-0123456789ab"},
		{Kind: KindAdmin, OwnerID: "018f1c6a-2b3c-7def-8abc-0123456789ab"},
	} {
		parsed, err := ParseRole(role.Claim())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
}
