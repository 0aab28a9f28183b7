// Package registry holds the listener's table of connected remotes.
//
// A Registry is not safe for concurrent use. The listener confines it to its
// event loop goroutine, which is the only place connections are added,
// removed or written to.
package registry

import "github.com/stagehand/remote/internal/protocol"

// Conn is the write side of one remote connection.
type Conn interface {
	// Send queues an encoded frame. It returns false if the frame was not
	// queued because the connection is closed or its buffer is full.
	Send(data []byte) bool

	// Open reports whether the connection still accepts frames.
	Open() bool

	// Close starts shutting the connection down. Safe to call more than once.
	Close()
}

// Entry is one registered remote.
type Entry struct {
	Conn Conn
	Info protocol.ClientInfo
}

// Registry maps client ids to their connection and metadata.
type Registry struct {
	entries map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers conn under info.ID. It returns false, and changes nothing,
// if the id is already present.
func (r *Registry) Add(conn Conn, info protocol.ClientInfo) bool {
	if _, exists := r.entries[info.ID]; exists {
		return false
	}
	r.entries[info.ID] = &Entry{Conn: conn, Info: info}
	return true
}

// Remove deletes id and returns its entry. The second result is false if the
// id was not registered, which lets callers report a disconnect only once.
func (r *Registry) Remove(id string) (*Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	return e, true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Broadcast queues data on every open connection and returns how many
// accepted it. Connections that are not open are skipped.
func (r *Registry) Broadcast(data []byte) int {
	sent := 0
	for _, e := range r.entries {
		if !e.Conn.Open() {
			continue
		}
		if e.Conn.Send(data) {
			sent++
		}
	}
	return sent
}

// SendTo queues data on one connection. It is a no-op returning false when
// the id is unknown or the connection is not open.
func (r *Registry) SendTo(id string, data []byte) bool {
	e, ok := r.entries[id]
	if !ok || !e.Conn.Open() {
		return false
	}
	return e.Conn.Send(data)
}

// Clear closes every connection, empties the registry and returns the
// entries that were removed.
func (r *Registry) Clear() []*Entry {
	removed := make([]*Entry, 0, len(r.entries))
	for id, e := range r.entries {
		e.Conn.Close()
		removed = append(removed, e)
		delete(r.entries, id)
	}
	return removed
}
