package shared

const (
	// NumPlanes is the number of bit positions in an input byte.
	NumPlanes = 8

	// GroupSize is the number of input bytes packed into one plane byte.
	GroupSize = 8

	// OwnerReadWriteExec is a standard owner read / write / exec file permission.
	OwnerReadWriteExec = 0700

	// OwnerReadWrite is a standard owner read / write file permission.
	OwnerReadWrite = 0600

	lockFilePrefix = "bitplane-"
)
