// Package mutation coordinates write operations against the books backend.
//
// Deletions are never optimistic: a book leaves the local lists only after
// the server confirms. Each id being deleted is tracked independently so a
// renderer can show a busy indicator on the right item while several
// deletions overlap.
package mutation
