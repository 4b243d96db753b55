package common

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)
