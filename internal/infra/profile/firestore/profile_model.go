// Package firestore contains the concrete profile store implementation over
// Cloud Firestore.
package firestore

import (
	"time"

	"beacon/internal/domain/entity"
)

// profileDoc is the Firestore document shape of a profile record. The document
// ID is the subject identifier and is not stored as a field.
type profileDoc struct {
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"displayName"`
	FirstName   string    `firestore:"firstName"`
	LastName    string    `firestore:"lastName"`
	PhotoURL    string    `firestore:"photoUrl"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// toProfileDomain maps a document back to a pure domain entity.
func toProfileDomain(uid string, doc *profileDoc) *entity.ProfileRecord {
	return &entity.ProfileRecord{
		UID:         uid,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		PhotoURL:    doc.PhotoURL,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
