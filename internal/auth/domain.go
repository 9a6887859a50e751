package auth

// Credentials is the login input. Secret is an opaque value, never hashed or logged.
type Credentials struct {
	Identifier string `json:"email" validate:"required,max=254"`
	Secret     string `json:"password" validate:"required,max=256"`
}
