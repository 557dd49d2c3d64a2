package firestore

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"

	"beacon/config"
	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// watchBuffer bounds the per-watch emission channel. The reconciler consumes
// sequentially; a burst of writes only needs the latest snapshot anyway.
const watchBuffer = 16

// profileRepository implements repository.ProfileRepository over a Firestore
// collection keyed by subject identifier.
type profileRepository struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// ProfileRepositoryParams holds dependencies for the profile store, injected by Fx.
type ProfileRepositoryParams struct {
	fx.In

	Client *firestore.Client
	Config *config.Config
	Logger *slog.Logger
}

// NewProfileRepository is the constructor for profileRepository.
func NewProfileRepository(params ProfileRepositoryParams) (repository.ProfileRepository, error) {
	if params.Config == nil || params.Config.Firebase == nil || params.Config.Firebase.ProfileCollection == "" {
		return nil, errors.New("profile collection is not configured")
	}

	return &profileRepository{
		client:     params.Client,
		collection: params.Config.Firebase.ProfileCollection,
		logger:     params.Logger,
	}, nil
}

func (repo *profileRepository) doc(uid string) *firestore.DocumentRef {
	return repo.client.Collection(repo.collection).Doc(uid)
}

// Find returns the profile record for a subject identifier.
func (repo *profileRepository) Find(ctx context.Context, uid string) (*entity.ProfileRecord, error) {
	snapshot, err := repo.doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrProfileNotFound
		}

		return nil, errors.Wrap(err, "failed to read profile document")
	}

	doc := new(profileDoc)
	if err := snapshot.DataTo(doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile document")
	}

	return toProfileDomain(uid, doc), nil
}

// Watch streams the profile document on every change. A nil emission means the
// document does not exist.
func (repo *profileRepository) Watch(ctx context.Context, uid string) (<-chan *entity.ProfileRecord, func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	snapshots := repo.doc(uid).Snapshots(watchCtx)
	ch := make(chan *entity.ProfileRecord, watchBuffer)

	go func() {
		defer close(ch)
		defer snapshots.Stop()

		for {
			snapshot, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					repo.logger.Error("Profile watch terminated",
						slog.String("uid", uid), slog.Any("error", err))
				}

				return
			}

			var record *entity.ProfileRecord
			if snapshot.Exists() {
				doc := new(profileDoc)
				if err := snapshot.DataTo(doc); err != nil {
					repo.logger.Error("Skipping undecodable profile snapshot",
						slog.String("uid", uid), slog.Any("error", err))

					continue
				}
				record = toProfileDomain(uid, doc)
			}

			select {
			case ch <- record:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return ch, cancel, nil
}

// Upsert merge-writes the patch into the document, creating it when absent.
// Timestamps are written server-side so clients with skewed clocks cannot
// corrupt the record's history.
func (repo *profileRepository) Upsert(ctx context.Context, uid string, patch *entity.ProfilePatch) error {
	if _, err := repo.doc(uid).Set(ctx, patchData(patch), firestore.MergeAll); err != nil {
		return errors.Wrap(err, "failed to merge profile document")
	}

	return nil
}

// patchData maps a patch onto document fields. Only named fields appear, so a
// MergeAll write never clobbers fields the patch did not touch.
func patchData(patch *entity.ProfilePatch) map[string]any {
	data := map[string]any{
		"updatedAt": firestore.ServerTimestamp,
	}
	if patch.SetCreatedAt {
		data["createdAt"] = firestore.ServerTimestamp
	}
	if patch.Email != nil {
		data["email"] = *patch.Email
	}
	if patch.DisplayName != nil {
		data["displayName"] = *patch.DisplayName
	}
	if patch.FirstName != nil {
		data["firstName"] = *patch.FirstName
	}
	if patch.LastName != nil {
		data["lastName"] = *patch.LastName
	}
	if patch.PhotoURL != nil {
		data["photoUrl"] = *patch.PhotoURL
	}

	return data
}
