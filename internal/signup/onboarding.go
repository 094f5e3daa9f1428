package signup

import (
	"strings"

	"github.com/gosimple/slug"
)

const onboardingRoot = "/onboarding"

// OnboardingPath maps a role to its onboarding continuation. Unknown roles
// fall back to /onboarding/<slug>.
func OnboardingPath(paths map[string]string, userType string) string {
	role := strings.ToLower(strings.TrimSpace(userType))
	if path, ok := paths[role]; ok && path != "" {
		return path
	}
	s := slug.Make(role)
	if s == "" {
		return onboardingRoot
	}
	return onboardingRoot + "/" + s
}
