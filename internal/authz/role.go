// Package authz decides whether a caller's role claim grants it ownership of
// a resource. Access tokens carry the role as a single combined string
// ("student", "teacher:<uuid>" or "admin:<uuid>"); this package parses that
// claim once and exposes the ownership predicate route handlers branch on.
package authz

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// Kind enumerates the role variants carried in the role claim.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
	KindAdmin   Kind = "admin"
)

// Role is the decoded form of a role claim. OwnerID is empty for students.
type Role struct {
	Kind    Kind
	OwnerID string
}

// Two alternatives per kind: a strict RFC 4122 version-7 shape, and a loose
// hex/dash fallback for legacy identifiers. Either may extract the owner id.
var (
	teacherStrict = regexp.MustCompile(`^teacher:([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-7[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12})$`)
	teacherLoose  = regexp.MustCompile(`^teacher:([0-9a-fA-F-]+)$`)
	adminStrict   = regexp.MustCompile(`^admin:([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-7[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12})$`)
	adminLoose    = regexp.MustCompile(`^admin:([0-9a-fA-F-]+)$`)
)

// ParseRole decodes a combined role claim into its tagged form. It is called
// once per request when the JWT middleware validates the token.
func ParseRole(claim string) (Role, error) {
	if claim == "" || claim == string(KindStudent) {
		return Role{Kind: KindStudent}, nil
	}
	if id := extractOwnerID(claim, teacherStrict, teacherLoose); id != "" {
		return Role{Kind: KindTeacher, OwnerID: id}, nil
	}
	if id := extractOwnerID(claim, adminStrict, adminLoose); id != "" {
		return Role{Kind: KindAdmin, OwnerID: id}, nil
	}
	return Role{}, fmt.Errorf("unrecognized role claim %q", claim)
}

// Matches reports whether the role owns the resource scoped to ownerID.
// Students own nothing.
func (r Role) Matches(ownerID string) bool {
	if r.Kind == KindStudent || r.OwnerID == "" {
		return false
	}
	return r.OwnerID == ownerID
}

// MatchesOwner reports whether the raw role claim authorizes the caller as
// the owner identified by ownerID. True means authorized. A nil ownerID is an
// error condition, recorded through the optional logger and mapped to false;
// the predicate never panics and never returns an error.
func MatchesOwner(requestRole string, ownerID *string, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ownerID == nil {
		logger.Error("role match requested against nil owner id",
			zap.String("role_claim", requestRole))
		return false
	}

	for _, patterns := range [][2]*regexp.Regexp{
		{teacherStrict, teacherLoose},
		{adminStrict, adminLoose},
	} {
		if id := extractOwnerID(requestRole, patterns[0], patterns[1]); id != "" {
			if id == *ownerID {
				return true
			}
		}
	}
	return false
}

func extractOwnerID(claim string, strict, loose *regexp.Regexp) string {
	if m := strict.FindStringSubmatch(claim); m != nil {
		return m[1]
	}
	if m := loose.FindStringSubmatch(claim); m != nil {
		return m[1]
	}
	return ""
}

// Claim renders the combined role string embedded in access tokens.
func (r Role) Claim() string {
	switch r.Kind {
	case KindTeacher, KindAdmin:
		return fmt.Sprintf("%s:%s", r.Kind, r.OwnerID)
	default:
		return string(KindStudent)
	}
}
