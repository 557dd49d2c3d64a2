package impl

import (
	"context"
	"testing"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfile(identity *fakeIdentity, profiles *fakeProfiles) usecase.ProfileUsecase {
	return NewProfileService(ProfileServiceParams{
		Identity: identity,
		Profiles: profiles,
		Logger:   newDiscardLogger(),
	})
}

func TestUpdateName(t *testing.T) {
	identity := newFakeIdentity()
	profiles := newFakeProfiles()
	profiles.put(&entity.ProfileRecord{
		UID:         "u1",
		Email:       "ada@example.com",
		DisplayName: "Ada Lovelace",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		PhotoURL:    "https://example.com/ada.png",
	})
	identity.setSession(passwordSession("u1", "ada@example.com", "Ada Lovelace"))

	profile := newTestProfile(identity, profiles)
	err := profile.UpdateName(context.Background(), &usecase.UpdateNameInput{
		FirstName: "Ada",
		LastName:  "King",
	})
	require.NoError(t, err)

	updates := identity.updates()
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].DisplayName)
	assert.Equal(t, "Ada King", *updates[0].DisplayName)

	record := profiles.record("u1")
	require.NotNil(t, record)
	assert.Equal(t, "Ada", record.FirstName)
	assert.Equal(t, "King", record.LastName)
	assert.Equal(t, "Ada King", record.DisplayName)

	// A name patch never touches unrelated fields.
	assert.Equal(t, "ada@example.com", record.Email)
	assert.Equal(t, "https://example.com/ada.png", record.PhotoURL)
}

func TestUpdateNameWithoutSession(t *testing.T) {
	profile := newTestProfile(newFakeIdentity(), newFakeProfiles())

	err := profile.UpdateName(context.Background(), &usecase.UpdateNameInput{
		FirstName: "Ada",
		LastName:  "King",
	})
	assert.ErrorIs(t, err, domainerrors.ErrNoActiveUser)
}

func TestUpdateNameValidation(t *testing.T) {
	identity := newFakeIdentity()
	identity.setSession(passwordSession("u1", "ada@example.com", "Ada"))
	profile := newTestProfile(identity, newFakeProfiles())

	err := profile.UpdateName(context.Background(), &usecase.UpdateNameInput{FirstName: "Ada"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	assert.Empty(t, identity.updates())
}

func TestChangePassword(t *testing.T) {
	identity := newFakeIdentity()
	identity.setSession(passwordSession("u1", "ada@example.com", "Ada"))
	profile := newTestProfile(identity, newFakeProfiles())

	err := profile.ChangePassword(context.Background(), &usecase.ChangePasswordInput{
		CurrentPassword: "correct horse",
		NewPassword:     "battery staple",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"battery staple"}, identity.passwordUpdates)
}

func TestChangePasswordWrongCurrentPassword(t *testing.T) {
	identity := newFakeIdentity()
	identity.setSession(passwordSession("u1", "ada@example.com", "Ada"))
	identity.reauthErr = errors.Wrap(domainerrors.ErrInvalidCredential, "rejected")
	profile := newTestProfile(identity, newFakeProfiles())

	err := profile.ChangePassword(context.Background(), &usecase.ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "battery staple",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredential)
	assert.NotErrorIs(t, err, domainerrors.ErrWeakPassword)
	assert.Empty(t, identity.passwordUpdates)
}

func TestChangePasswordWeakNewPassword(t *testing.T) {
	identity := newFakeIdentity()
	identity.setSession(passwordSession("u1", "ada@example.com", "Ada"))
	identity.updatePasswordErr = errors.Wrap(domainerrors.ErrWeakPassword, "too short")
	profile := newTestProfile(identity, newFakeProfiles())

	err := profile.ChangePassword(context.Background(), &usecase.ChangePasswordInput{
		CurrentPassword: "correct horse",
		NewPassword:     "x",
	})
	require.ErrorIs(t, err, domainerrors.ErrWeakPassword)
	assert.NotErrorIs(t, err, domainerrors.ErrInvalidCredential)
}

func TestChangePasswordWithoutUsableSession(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		profile := newTestProfile(newFakeIdentity(), newFakeProfiles())

		err := profile.ChangePassword(context.Background(), &usecase.ChangePasswordInput{
			CurrentPassword: "correct horse",
			NewPassword:     "battery staple",
		})
		assert.ErrorIs(t, err, domainerrors.ErrNoActiveUser)
	})

	t.Run("federated-only account without email", func(t *testing.T) {
		identity := newFakeIdentity()
		identity.setSession(&entity.Session{
			UID:       "u1",
			Providers: []entity.ProviderID{entity.ProviderGoogle},
		})
		profile := newTestProfile(identity, newFakeProfiles())

		err := profile.ChangePassword(context.Background(), &usecase.ChangePasswordInput{
			CurrentPassword: "correct horse",
			NewPassword:     "battery staple",
		})
		assert.ErrorIs(t, err, domainerrors.ErrNoActiveUser)
	})
}

func TestUpdatePhoto(t *testing.T) {
	identity := newFakeIdentity()
	profiles := newFakeProfiles()
	profiles.put(&entity.ProfileRecord{
		UID:       "u1",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	identity.setSession(passwordSession("u1", "ada@example.com", "Ada Lovelace"))

	profile := newTestProfile(identity, profiles)
	require.NoError(t, profile.UpdatePhoto(context.Background(), "https://example.com/new.png"))

	record := profiles.record("u1")
	require.NotNil(t, record)
	assert.Equal(t, "https://example.com/new.png", record.PhotoURL)
	assert.Equal(t, "Ada", record.FirstName)
	assert.Equal(t, "Lovelace", record.LastName)
}

func TestUpdatePhotoWithoutSessionIsNoOp(t *testing.T) {
	profiles := newFakeProfiles()
	profile := newTestProfile(newFakeIdentity(), profiles)

	require.NoError(t, profile.UpdatePhoto(context.Background(), "https://example.com/new.png"))
	assert.Empty(t, profiles.upserts())
}
