/*
store.go - Persistence interface for client documents

PURPOSE:
  Defines the interface between the billing engine and the document store.
  The engine never talks to a database; handlers load a Client, run Apply,
  and hand the returned Patch to the store.

KEY INTERFACE:
  ClientStore: Create, Get, List, Save, ApplyPatch, Delete

WRITE CONTRACT:
  - Save replaces the whole document (profile edits, imports)
  - ApplyPatch writes only the fields named by the patch; array appends
    never rewrite existing elements
  - Concurrent writes to one client are last-writer-wins

IMPLEMENTATIONS:
  - billing/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite, one JSON document per client
  - store/firestore/firestore.go: Firestore "clients" collection

EXAMPLE:
  c, err := store.Get(ctx, id)
  next, patch, err := billing.Apply(c, billing.RecordPayment{...}, now)
  err = store.ApplyPatch(ctx, id, patch)

SEE ALSO:
  - events.go: Produces patches
  - patch.go: MergePatch for document-based stores
*/
package billing

import (
	"context"
	"sort"
	"strings"
)

// =============================================================================
// CLIENT STORE - Document persistence
// =============================================================================

type ClientStore interface {
	// Create stores a new client and returns it with its assigned id.
	// A client that already carries an id keeps it.
	Create(ctx context.Context, c Client) (Client, error)

	// Get returns ErrClientNotFound when no client has the id.
	Get(ctx context.Context, id string) (Client, error)

	// List returns every client ordered by last name, then first name.
	List(ctx context.Context) ([]Client, error)

	// Save replaces the whole document. Returns ErrClientNotFound for unknown ids.
	Save(ctx context.Context, c Client) error

	// ApplyPatch writes the patched fields only. Returns ErrClientNotFound
	// for unknown ids.
	ApplyPatch(ctx context.Context, id string, p Patch) error

	// Delete removes the client. Returns ErrClientNotFound for unknown ids.
	Delete(ctx context.Context, id string) error

	Close() error
}

// SortByName orders clients by last name, then first name, then id.
func SortByName(cs []Client) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if al, bl := strings.ToLower(a.LastName), strings.ToLower(b.LastName); al != bl {
			return al < bl
		}
		if af, bf := strings.ToLower(a.FirstName), strings.ToLower(b.FirstName); af != bf {
			return af < bf
		}
		return a.ID < b.ID
	})
}
