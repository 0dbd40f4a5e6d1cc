package models

// Credential represents the administrator account.
type Credential struct {
	ID               int64  `json:"id"`
	Nickname         string `json:"nickname"`
	PasswordHash     string `json:"-"`
	SecurityQuestion string `json:"security_question"`
	AnswerHash       string `json:"-"`
}
