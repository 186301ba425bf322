package live

import "strings"

const (
	apiKeyPrefix         = "AIza"
	ephemeralTokenPrefix = "auth_tokens/"
)

// ValidateCredential accepts a raw API key or an ephemeral token minted by
// the backend. Anything else is rejected before a connection is attempted.
func ValidateCredential(credential string) error {
	if IsAPIKey(credential) || IsEphemeralToken(credential) {
		return nil
	}
	return ErrInvalidCredential
}

func IsAPIKey(credential string) bool {
	return strings.HasPrefix(credential, apiKeyPrefix)
}

func IsEphemeralToken(credential string) bool {
	return strings.HasPrefix(credential, ephemeralTokenPrefix)
}
