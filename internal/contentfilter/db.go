// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package contentfilter inspects request sections against a compiled
// signature database and the per-policy content-filter profile.
package contentfilter

import (
	"regexp"
	"sync"

	"github.com/stoneguard/waf/internal/sglib/sgerrors"
)

// SignatureSpec is the configuration form of one signature.
type SignatureSpec struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Risk     int    `json:"risk"`
	// Operand is the regular expression matched against the section values.
	Operand string `json:"operand"`
}

// Signature is one compiled signature.
type Signature struct {
	ID       string
	Category string
	Risk     int
	re       *regexp.Regexp
}

// DB is an immutable compiled signature database. A new DB is built on every
// configuration load and published through a Handle; checks run against the
// snapshot they grabbed and are not affected by concurrent reloads.
type DB struct {
	signatures []*Signature
}

// CompileDB compiles the signature specifications into a database. Signatures
// that fail to compile are skipped and reported in the returned error
// collection; the database is still usable.
func CompileDB(specs []SignatureSpec) (*DB, error) {
	db := &DB{signatures: make([]*Signature, 0, len(specs))}
	var errs sgerrors.ErrorCollection
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Operand)
		if err != nil {
			errs.Add(sgerrors.Wrapf(err, "could not compile the signature `%s`", spec.ID))
			continue
		}
		db.signatures = append(db.signatures, &Signature{
			ID:       spec.ID,
			Category: spec.Category,
			Risk:     spec.Risk,
			re:       re,
		})
	}
	return db, errs.ToError()
}

// Len returns the number of compiled signatures.
func (db *DB) Len() int {
	return len(db.signatures)
}

func (db *DB) match(value string) *Signature {
	for _, sig := range db.signatures {
		if sig.re.MatchString(value) {
			return sig
		}
	}
	return nil
}

// Handle is the process-wide published signature database. Readers grab the
// current snapshot and release the lock before running any matching.
type Handle struct {
	mu sync.RWMutex
	db *DB
}

// NewHandle returns a handle holding an empty database.
func NewHandle() *Handle {
	return &Handle{db: &DB{}}
}

// View returns the current database snapshot.
func (h *Handle) View() *DB {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.db
}

// Store publishes a new database snapshot.
func (h *Handle) Store(db *DB) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.db = db
}
