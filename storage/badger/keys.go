package badger

import (
	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

// Key prefixes for different data types
const (
	namespacePrefix = "ns:"
	versionPrefix   = "ver:"

	// keySeparator cannot appear in a validated identifier.
	keySeparator = "\x00"
)

// makeNamespaceKey generates the key of a namespace record.
// Format: ns:group\x00entity
func makeNamespaceKey(ns core.Namespace) []byte {
	return []byte(namespacePrefix + ns.Group + keySeparator + ns.Entity)
}

// makeVersionPrefix generates the prefix shared by all versions of a namespace.
// Format: ver:group\x00entity\x00
func makeVersionPrefix(ns core.Namespace) []byte {
	return []byte(versionPrefix + ns.Group + keySeparator + ns.Entity + keySeparator)
}

// makeVersionKey generates the key of a single version.
// Format: ver:group\x00entity\x00id
func makeVersionKey(loc storage.Location, id core.VersionID) []byte {
	return []byte(loc.Path + string(id))
}
