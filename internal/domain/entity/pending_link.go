package entity

// PendingLink captures a federated credential whose sign-in collided with an
// existing password account for the same email. It lives in memory only, at
// most one at a time, until the link completes, is cancelled, or the process
// ends.
type PendingLink struct {
	Credential *FederatedCredential // The federated credential awaiting linkage.
	Email      string               // The colliding account's email.
	PhotoURL   string               // Photo offered by the federated provider, optional.
}
