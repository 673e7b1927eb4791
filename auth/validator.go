package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Credentials are the raw register/login inputs. Usernames are 3-50
// characters; the length bounds mirror what the identity record guarantees.
type Credentials struct {
	Username string `validate:"required,min=3,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateRegister checks business rules before any expensive cryptographic
// operation runs.
func ValidateRegister(c Credentials) error {
	return validate.Struct(c)
}

// ValidateLogin only needs the username and password fields.
func ValidateLogin(username, password string) error {
	return validate.StructPartial(Credentials{Username: username, Password: password}, "Username", "Password")
}
