package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/stream"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIdentity is a scriptable in-memory IdentityProvider.
type fakeIdentity struct {
	mu       sync.Mutex
	sessions *stream.Replay[*entity.Session]
	current  *entity.Session
	observed chan struct{}

	registerFn       func(ctx context.Context, email, password string) (*entity.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*entity.Session, error)
	federatedFn      func(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error)
	linkFn           func(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error)
	reauthErr        error
	updatePasswordErr error
	updateProfileErr error
	verifyErr        error
	listMethods      []entity.ProviderID
	listMethodsErr   error

	profileUpdates   []*service.ProfileUpdate
	linkCalls        []*entity.FederatedCredential
	signOutCalls     int
	verificationSent int
	passwordUpdates  []string
}

func newFakeIdentity() *fakeIdentity {
	// No equality func: tests control exactly which emissions reach the
	// reconciler, including duplicates.
	return &fakeIdentity{
		sessions: stream.NewReplay[*entity.Session](nil),
		observed: make(chan struct{}),
	}
}

// setSession installs a session as current and publishes it to observers.
func (f *fakeIdentity) setSession(session *entity.Session) {
	f.mu.Lock()
	f.current = session
	f.mu.Unlock()
	f.sessions.Publish(session)
}

func (f *fakeIdentity) RegisterWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	if f.registerFn == nil {
		panic("fakeIdentity: registerFn not scripted")
	}
	session, err := f.registerFn(ctx, email, password)
	if err == nil {
		f.setSession(session)
	}

	return session, err
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	if f.signInFn == nil {
		panic("fakeIdentity: signInFn not scripted")
	}
	session, err := f.signInFn(ctx, email, password)
	if err == nil {
		f.setSession(session)
	}

	return session, err
}

func (f *fakeIdentity) SignInWithFederatedCredential(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error) {
	if f.federatedFn == nil {
		panic("fakeIdentity: federatedFn not scripted")
	}
	session, err := f.federatedFn(ctx, credential)
	if err == nil {
		f.setSession(session)
	}

	return session, err
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	f.setSession(nil)

	return nil
}

func (f *fakeIdentity) Reauthenticate(context.Context, string, string) error {
	return f.reauthErr
}

func (f *fakeIdentity) UpdatePassword(_ context.Context, newPassword string) error {
	if f.updatePasswordErr != nil {
		return f.updatePasswordErr
	}
	f.mu.Lock()
	f.passwordUpdates = append(f.passwordUpdates, newPassword)
	f.mu.Unlock()

	return nil
}

func (f *fakeIdentity) UpdateProfile(_ context.Context, update *service.ProfileUpdate) error {
	if f.updateProfileErr != nil {
		return f.updateProfileErr
	}

	f.mu.Lock()
	f.profileUpdates = append(f.profileUpdates, update)
	session := f.current
	f.mu.Unlock()

	if session != nil {
		next := *session
		if update.DisplayName != nil {
			next.DisplayName = *update.DisplayName
		}
		if update.PhotoURL != nil {
			next.PhotoURL = *update.PhotoURL
		}
		f.setSession(&next)
	}

	return nil
}

func (f *fakeIdentity) ListSignInMethods(context.Context, string) ([]entity.ProviderID, error) {
	return f.listMethods, f.listMethodsErr
}

func (f *fakeIdentity) LinkCredential(ctx context.Context, credential *entity.FederatedCredential) (*entity.Session, error) {
	f.mu.Lock()
	f.linkCalls = append(f.linkCalls, credential)
	f.mu.Unlock()

	if f.linkFn == nil {
		f.mu.Lock()
		session := f.current
		f.mu.Unlock()

		return session, nil
	}
	session, err := f.linkFn(ctx, credential)
	if err == nil && session != nil {
		f.setSession(session)
	}

	return session, err
}

func (f *fakeIdentity) SendVerificationEmail(context.Context) error {
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.mu.Lock()
	f.verificationSent++
	f.mu.Unlock()

	return nil
}

func (f *fakeIdentity) signOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.signOutCalls
}

func (f *fakeIdentity) links() []*entity.FederatedCredential {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*entity.FederatedCredential(nil), f.linkCalls...)
}

func (f *fakeIdentity) updates() []*service.ProfileUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*service.ProfileUpdate(nil), f.profileUpdates...)
}

func (f *fakeIdentity) verifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.verificationSent
}

func (f *fakeIdentity) CurrentSession() *entity.Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current
}

func (f *fakeIdentity) ObserveSession() (<-chan *entity.Session, func()) {
	f.mu.Lock()
	select {
	case <-f.observed:
	default:
		close(f.observed)
	}
	f.mu.Unlock()

	return f.sessions.Subscribe()
}

// awaitObserver blocks until someone has subscribed to the session stream.
func (f *fakeIdentity) awaitObserver(t *testing.T) {
	t.Helper()

	select {
	case <-f.observed:
	case <-time.After(2 * time.Second):
		t.Fatal("no session observer appeared")
	}
}

// upsertCall records one merge write against the fake profile store.
type upsertCall struct {
	uid   string
	patch *entity.ProfilePatch
}

// fakeProfiles is an in-memory ProfileRepository with watch support.
type fakeProfiles struct {
	mu       sync.Mutex
	records  map[string]*entity.ProfileRecord
	watchers map[string][]chan *entity.ProfileRecord
	clock    time.Time

	findErr     error
	upsertErr   error
	watchErr    error
	upsertCalls []upsertCall
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		records:  make(map[string]*entity.ProfileRecord),
		watchers: make(map[string][]chan *entity.ProfileRecord),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeProfiles) Find(_ context.Context, uid string) (*entity.ProfileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}

	record, ok := f.records[uid]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	copied := *record

	return &copied, nil
}

func (f *fakeProfiles) Watch(_ context.Context, uid string) (<-chan *entity.ProfileRecord, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watchErr != nil {
		return nil, nil, f.watchErr
	}

	ch := make(chan *entity.ProfileRecord, 16)
	f.watchers[uid] = append(f.watchers[uid], ch)

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		watchers := f.watchers[uid]
		for i, watcher := range watchers {
			if watcher == ch {
				f.watchers[uid] = append(watchers[:i], watchers[i+1:]...)
				close(ch)

				return
			}
		}
	}

	return ch, cancel, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, uid string, patch *entity.ProfilePatch) error {
	f.mu.Lock()

	f.upsertCalls = append(f.upsertCalls, upsertCall{uid: uid, patch: patch})
	if f.upsertErr != nil {
		f.mu.Unlock()

		return f.upsertErr
	}

	f.clock = f.clock.Add(time.Second)
	record, ok := f.records[uid]
	if !ok {
		record = &entity.ProfileRecord{UID: uid}
		f.records[uid] = record
	}
	if patch.SetCreatedAt || record.CreatedAt.IsZero() {
		record.CreatedAt = f.clock
	}
	record.UpdatedAt = f.clock
	if patch.Email != nil {
		record.Email = *patch.Email
	}
	if patch.DisplayName != nil {
		record.DisplayName = *patch.DisplayName
	}
	if patch.FirstName != nil {
		record.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		record.LastName = *patch.LastName
	}
	if patch.PhotoURL != nil {
		record.PhotoURL = *patch.PhotoURL
	}

	copied := *record
	watchers := append([]chan *entity.ProfileRecord(nil), f.watchers[uid]...)
	f.mu.Unlock()

	for _, watcher := range watchers {
		watcher <- &copied
	}

	return nil
}

func (f *fakeProfiles) record(uid string) *entity.ProfileRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[uid]
	if !ok {
		return nil
	}
	copied := *record

	return &copied
}

func (f *fakeProfiles) setFindErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.findErr = err
}

func (f *fakeProfiles) setUpsertErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertErr = err
}

func (f *fakeProfiles) watcherCount(uid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.watchers[uid])
}

func (f *fakeProfiles) upserts() []upsertCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]upsertCall(nil), f.upsertCalls...)
}

func (f *fakeProfiles) put(record *entity.ProfileRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *record
	f.records[record.UID] = &copied
}

// fakeCredentialSource scripts the device-side federated credential prompt.
type fakeCredentialSource struct {
	mu         sync.Mutex
	credential *entity.FederatedCredential
	err        error
	calls      int
}

func (f *fakeCredentialSource) Credential(context.Context, entity.ProviderID, string) (*entity.FederatedCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return f.credential, nil
}
