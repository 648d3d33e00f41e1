package domain

// Credentials is what a successful login returns and what is persisted locally.
type Credentials struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	UserType     string  `json:"user_type"`
	Profile      Profile `json:"profile"`
}
