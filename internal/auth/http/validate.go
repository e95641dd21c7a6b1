package http

import (
	"net/mail"
	"strings"

	"github.com/aussiebroadwan/passage/pkg/authsdk"
)

const minPasswordLength = 6

type fieldErrors map[string]string

func (f fieldErrors) err() *authsdk.APIError {
	if len(f) == 0 {
		return nil
	}
	return authsdk.ErrInvalidRequest.WithFields(f)
}

// checkEmail accepts a bare RFC 5322 address. Display-name forms such as
// "Ana <ana@test.com>" are rejected.
func (f fieldErrors) checkEmail(email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		f["email"] = "email is required"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		f["email"] = "email is not a valid address"
	}
}

func (f fieldErrors) checkRequired(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = field + " is required"
	}
}

func validateRegister(req authsdk.RegisterRequest) *authsdk.APIError {
	f := fieldErrors{}
	f.checkEmail(req.Email)
	switch {
	case req.Password == "":
		f["password"] = "password is required"
	case len(req.Password) < minPasswordLength:
		f["password"] = "password must be at least 6 characters"
	}
	f.checkRequired("name", req.Name)
	return f.err()
}

func validateLogin(req authsdk.LoginRequest) *authsdk.APIError {
	f := fieldErrors{}
	f.checkEmail(req.Email)
	if req.Password == "" {
		f["password"] = "password is required"
	}
	return f.err()
}

func validateExchange(req authsdk.ExchangeRequest) *authsdk.APIError {
	f := fieldErrors{}
	f.checkRequired("code", req.Code)
	return f.err()
}
