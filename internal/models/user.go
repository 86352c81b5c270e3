package models

type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	CPF         string `json:"cpf"`
}

// AuthSession is what the storefront knows about the visitor's login. The
// token is never serialized back to the browser.
type AuthSession struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	User       *User  `json:"user"`
	Token      string `json:"-"`
}

type LoginResponse struct {
	User
	AccessToken string `json:"accessToken"`
}

type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	CPF         string `json:"cpf,omitempty"`
	Password    string `json:"password"`
}

type UserProfile struct {
	User
	Tickets []UserTicket `json:"tickets"`
}
