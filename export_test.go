package boxfs

// Helpers that let the external boxfs_test package reach package-internal constructors.

func NewAdapterError(kind error, path string, cause error) error {
	return newAdapterError(kind, path, cause)
}

func NewUnsupportedError(op, path string) error {
	return newUnsupportedError(op, path)
}
