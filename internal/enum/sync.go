package enum

type Encryption string

const (
	EncryptionSSL      Encryption = "ssl"
	EncryptionStartTLS Encryption = "starttls"
	EncryptionNone     Encryption = "none"
)

func (t Encryption) String() string {
	return string(t)
}

type AuthType string

const (
	AuthTypePassword AuthType = "password"
	AuthTypeOAuth2   AuthType = "oauth2"
)

func (t AuthType) String() string {
	return string(t)
}

// SyncType is the per-tick decision for an account.
type SyncType string

const (
	// SyncTypeInitial fetches all messages for the first time.
	SyncTypeInitial SyncType = "initial"
	// SyncTypeIncremental fetches new data since the last sync.
	SyncTypeIncremental SyncType = "incremental"
	// SyncTypeSkip means it is not yet time for the next sync.
	SyncTypeSkip SyncType = "skip"
)

func (t SyncType) String() string {
	return string(t)
}
