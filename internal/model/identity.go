package model

import "errors"

// ErrMalformedIdentity is returned when the owning record exists but the
// candidate relation cannot be followed.
var ErrMalformedIdentity = errors.New("malformed identity join")

// PartyIdentity is the display identity of the counterpart of a message.
type PartyIdentity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (p PartyIdentity) DisplayName() string {
	return p.FirstName + " " + p.LastName
}
