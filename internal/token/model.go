package token

// Pair is returned by a successful login.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Access is returned by a successful refresh.
type Access struct {
	AccessToken string `json:"accessToken"`
}
