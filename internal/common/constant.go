package common

// AuthorizationHeaderName carries the bearer token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// MinimumEncryptionKeyLength is the shortest passphrase accepted for an
// organisation key outside of test mode.
const MinimumEncryptionKeyLength = 8
