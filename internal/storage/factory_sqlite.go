//go:build sqlite

package storage

// DefaultStoreKind is the backend used when none is configured. Builds with
// sqlite persist history across runs by default.
func DefaultStoreKind() string {
	return "sqlite"
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
