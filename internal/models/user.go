package models

// Identity is the authenticated parent account on this device
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	// Token is the opaque bearer credential; it is persisted separately
	// from the identity snapshot and never serialized with it
	Token string `json:"-"`
}

// HasEmail reports whether the identity carries a contact address
func (i *Identity) HasEmail() bool {
	return i != nil && i.Email != ""
}
