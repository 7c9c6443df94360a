package types

type RefKind string

const (
	RefKindPublished RefKind = "published"
	RefKindStashed   RefKind = "stashed"
)

type PlanSource string

const (
	PlanSourceRemote PlanSource = "remote"
	PlanSourceStash  PlanSource = "stash"
)

type DriftKind string

const (
	DriftKindMissing    DriftKind = "missing"
	DriftKindExtra      DriftKind = "extra"
	DriftKindMismatched DriftKind = "mismatched"
)

type CommandMode string

const (
	CommandModeOneShot     CommandMode = "oneshot"
	CommandModeInteractive CommandMode = "interactive"
)

type StoreBackend string

const (
	StoreBackendHTTP StoreBackend = "http"
	StoreBackendDir  StoreBackend = "dir"
)
