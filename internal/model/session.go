package model

// LoginResult is returned by a successful login or token refresh.
type LoginResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	TokenType    string      `json:"tokenType"`
	ExpiresIn    int         `json:"expiresIn"`
	Admin        *Admin      `json:"admin,omitempty"`
	Privileges   []Privilege `json:"privileges,omitempty"`
}

// PrivilegesPayload is the body of the privilege endpoint.
type PrivilegesPayload struct {
	AdminPrivileges []Privilege `json:"adminPrivileges"`
}
