package entity

import "time"

// AccountUser is the derived view merging the live session's subject identifier
// with its profile record. It is the only user representation exposed to
// consumers of the reconciliation engine.
type AccountUser struct {
	UID         string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewAccountUser derives the consumer-facing view from a session and its
// profile record.
func NewAccountUser(session *Session, record *ProfileRecord) *AccountUser {
	return &AccountUser{
		UID:         session.UID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		FirstName:   record.FirstName,
		LastName:    record.LastName,
		PhotoURL:    record.PhotoURL,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// Equal reports whether two derived views are identical, which the user stream
// uses to suppress redundant emissions. Either side may be nil.
func (u *AccountUser) Equal(other *AccountUser) bool {
	if u == nil || other == nil {
		return u == other
	}

	return u.UID == other.UID &&
		u.Email == other.Email &&
		u.DisplayName == other.DisplayName &&
		u.FirstName == other.FirstName &&
		u.LastName == other.LastName &&
		u.PhotoURL == other.PhotoURL &&
		u.CreatedAt.Equal(other.CreatedAt) &&
		u.UpdatedAt.Equal(other.UpdatedAt)
}
