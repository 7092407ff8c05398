package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrElementNotFound    = errors.New("element not found")
	ErrPopupNotFound      = errors.New("popup window not found")
)
