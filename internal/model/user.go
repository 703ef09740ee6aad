package model

import "encoding/json"

type User struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// UnmarshalJSON also accepts the legacy "password" key used by older user
// files to hold the bcrypt hash.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		Email        string `json:"email"`
		PasswordHash string `json:"passwordHash"`
		Password     string `json:"password"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Email = raw.Email
	u.PasswordHash = raw.PasswordHash
	if u.PasswordHash == "" {
		u.PasswordHash = raw.Password
	}
	return nil
}
