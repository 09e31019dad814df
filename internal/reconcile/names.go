package reconcile

import (
	"regexp"
	"strings"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
)

// Fallback names for principals whose names cannot be derived.
const (
	UnknownFirstName = "Unknown"
	UnknownLastName  = "User"
)

var emailNames = regexp.MustCompile(`^([A-Za-z]+)[A-Za-z0-9]*\.([A-Za-z]+)[A-Za-z0-9]*@.*$`)

// DeriveNames returns the first and last name of a new principal: the token's
// given and family names when both are set, else the firstname.lastname local
// part of the email, else UnknownFirstName and UnknownLastName.
func DeriveNames(email string, token *auth.AccessToken) (string, string) {
	if token != nil && token.GivenName != "" && token.FamilyName != "" {
		return token.GivenName, token.FamilyName
	}

	m := emailNames.FindStringSubmatch(email)
	if m == nil {
		return UnknownFirstName, UnknownLastName
	}

	return capitalize(m[1]), capitalize(m[2])
}

func capitalize(s string) string {
	return strings.ToUpper(s[:1]) + s[1:]
}
