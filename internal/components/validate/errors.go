package validate

import "errors"

// Validation rejections. Each stage of Validate fails with its own
// sentinel so callers can both classify (IsInvalidURL) and surface a
// stable, specific reason. The message text is part of the contract.
var (
	ErrUnparsableURL         = errors.New("Unable to parse URL.")
	ErrNoHost                = errors.New("No host found in URL.")
	ErrCredentials           = errors.New("Credentials not allowed as part of the URL.")
	ErrSchemeNotWhitelisted  = errors.New("Scheme is not whitelisted.")
	ErrSchemeBlacklisted     = errors.New("Scheme is blacklisted.")
	ErrPortNotWhitelisted    = errors.New("Port is not whitelisted.")
	ErrPortBlacklisted       = errors.New("Port is blacklisted.")
	ErrHostNotWhitelisted    = errors.New("Host is not whitelisted.")
	ErrHostBlacklisted       = errors.New("Host is blacklisted.")
	ErrUnresolvableHost      = errors.New("Unable to resolve host.")
	ErrAddressBlacklisted    = errors.New("Host resolves to a blacklisted address.")
	ErrAddressNotWhitelisted = errors.New("Host does not resolve to a whitelisted address.")
)

var invalidURLErrors = []error{
	ErrUnparsableURL,
	ErrNoHost,
	ErrCredentials,
	ErrSchemeNotWhitelisted,
	ErrSchemeBlacklisted,
	ErrPortNotWhitelisted,
	ErrPortBlacklisted,
	ErrHostNotWhitelisted,
	ErrHostBlacklisted,
	ErrUnresolvableHost,
	ErrAddressBlacklisted,
	ErrAddressNotWhitelisted,
}

// IsInvalidURL reports whether err is a URL validation rejection.
// Validation rejections are final: the same URL under the same rules
// will never be retried by the executor.
func IsInvalidURL(err error) bool {
	for _, e := range invalidURLErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
