package common

// Metadata keys used by the gRPC transport to carry tokens in both directions.
const (
	AccessTokenHeaderName  = "access_token"
	RefreshTokenHeaderName = "refresh_token"
)

// HTTP header names used by the REST transport.
const (
	HTTPAuthorizationHeader = "Authorization"
	HTTPAccessTokenHeader   = "X-Access-Token"
	HTTPRefreshTokenHeader  = "X-Refresh-Token"
)
