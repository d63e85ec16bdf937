// Package dedup provides canonical content hashing for contract bytecode and
// source text, and the hash-set tracker that decides whether a contract has
// been seen before.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// HashBytecode returns the canonical digest of deployed bytecode. The input
// is lowercased and stripped of any 0x prefix before hashing, so the digest
// is stable across casing and prefix variations of the same code.
func HashBytecode(bytecode string) string {
	clean := strings.ReplaceAll(strings.ToLower(bytecode), "0x", "")
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:])
}

// HashSource returns the canonical digest of contract source text. All
// whitespace runs are collapsed to single spaces before hashing; comments are
// kept, so only formatting differences are ignored.
func HashSource(source string) string {
	normalized := strings.Join(strings.Fields(source), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Tracker records bytecode and source hashes that have already been admitted.
// A contract is a duplicate when either hash matches a seen one: identical
// bytecode with cosmetically altered source, or reformatted source with
// identical bytecode, are both rejected.
//
// All methods are safe for concurrent use. Concurrent admit decisions must go
// through CheckAndAdmit so that the check and the insert cannot interleave.
type Tracker struct {
	mu       sync.Mutex
	bytecode map[string]struct{}
	source   map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		bytecode: make(map[string]struct{}),
		source:   make(map[string]struct{}),
	}
}

// IsDuplicate reports whether either hash has been admitted before.
func (t *Tracker) IsDuplicate(bytecodeHash, sourceHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isDuplicateLocked(bytecodeHash, sourceHash)
}

// Admit records both hashes as seen. Call only after IsDuplicate returned
// false for the same pair, or use CheckAndAdmit.
func (t *Tracker) Admit(bytecodeHash, sourceHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.admitLocked(bytecodeHash, sourceHash)
}

// CheckAndAdmit atomically checks for a duplicate and, if the pair is novel,
// records both hashes. It returns true when the pair was admitted.
func (t *Tracker) CheckAndAdmit(bytecodeHash, sourceHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isDuplicateLocked(bytecodeHash, sourceHash) {
		return false
	}
	t.admitLocked(bytecodeHash, sourceHash)
	return true
}

// Len returns the number of admitted pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bytecode)
}

func (t *Tracker) isDuplicateLocked(bytecodeHash, sourceHash string) bool {
	if _, ok := t.bytecode[bytecodeHash]; ok {
		return true
	}
	_, ok := t.source[sourceHash]
	return ok
}

func (t *Tracker) admitLocked(bytecodeHash, sourceHash string) {
	t.bytecode[bytecodeHash] = struct{}{}
	t.source[sourceHash] = struct{}{}
}
