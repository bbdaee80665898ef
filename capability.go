package mfs

// Backends are plain absfs.FileSystem values. Everything beyond the absfs
// surface is optional: the adapter looks for the interfaces below on the
// backend an operation was routed to and falls back, or fails with
// ErrUnsupportedOperation, when they are missing. Names passed to these
// methods are the backend's own path components.

// BlockLocator reports where the bytes of a file live.
type BlockLocator interface {
	BlockLocations(name string, start, length int64) ([]BlockLocation, error)
}

// Checksummer computes a checksum over the first length bytes of a file.
type Checksummer interface {
	FileChecksum(name string, length int64) (*FileChecksum, error)
}

// StatusReporter reports the capacity of the filesystem holding name.
type StatusReporter interface {
	Status(name string) (FsStatus, error)
}

// Summarizer computes the content summary of a tree natively.
type Summarizer interface {
	ContentSummary(name string) (ContentSummary, error)
}

// Replicator changes the replication factor of a file.
type Replicator interface {
	SetReplication(name string, replication int16) (bool, error)
}

// OwnerSetter changes ownership using symbolic user and group names.
type OwnerSetter interface {
	SetOwner(name, user, group string) error
}

// ExitDeleter schedules name for deletion when the backend is closed.
type ExitDeleter interface {
	DeleteOnExit(name string) error
}

// XAttrer manages extended attributes.
type XAttrer interface {
	SetXAttr(name, attr string, value []byte, flag XAttrSetFlag) error
	GetXAttr(name, attr string) ([]byte, error)
	GetXAttrs(name string, attrs []string) (map[string][]byte, error)
	ListXAttrs(name string) ([]string, error)
	RemoveXAttr(name, attr string) error
}

// ACLer manages access control lists.
type ACLer interface {
	AclStatus(name string) (AclStatus, error)
	ModifyAclEntries(name string, aclSpec []AclEntry) error
	RemoveAclEntries(name string, aclSpec []AclEntry) error
	RemoveDefaultAcl(name string) error
	RemoveAcl(name string) error
	SetAcl(name string, aclSpec []AclEntry) error
}

// PathChecker validates a path against backend specific rules.
type PathChecker interface {
	CheckPath(p Path) error
}

// HomeDirer reports the home directory of the current user.
type HomeDirer interface {
	HomeDir() string
}

// StatisticsProvider exposes the statistics a backend maintains so the
// adapter can share them.
type StatisticsProvider interface {
	Statistics() *Statistics
}
