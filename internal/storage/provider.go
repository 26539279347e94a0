// Package storage abstracts the durable hierarchical medium under the vault:
// named blobs with list, read, atomic write, and delete.
package storage

import "time"

// Entry is lightweight file metadata returned by List.
type Entry struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the storage interface the engine depends on. Only the vault
// write path (and the graph rebuild it triggers) may call Write or Delete;
// reads may run concurrently with each other.
type Provider interface {
	// List walks dir (relative to the root, "" for everything) and returns
	// metadata for every .md file, in lexical path order.
	List(dir string) ([]Entry, error)

	// Read returns the raw bytes of a file.
	Read(path string) ([]byte, error)

	// Write persists content atomically (temp file, fsync, rename), so a
	// concurrent reader never observes a half-written file.
	Write(path string, content []byte) error

	// Delete removes a file.
	Delete(path string) error

	// Stat returns metadata for a single file.
	Stat(path string) (Entry, error)
}
