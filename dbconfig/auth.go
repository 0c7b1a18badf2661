/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package dbconfig

import "sync"

// SavedAuth is the (db_name, username, password) triple replayed against
// every freshly elected master, per spec.md §3.
type SavedAuth struct {
	DBName   string
	Username string
	Password string
}

// AuthList is the saved-auth set keyed by DBName: adding an auth for an
// existing DBName replaces it in place, and List() preserves insertion
// order so replay (spec.md §4.4) is deterministic.
type AuthList struct {
	mu    sync.Mutex
	order []string
	byDB  map[string]SavedAuth
}

// NewAuthList returns an empty saved-auth set.
func NewAuthList() *AuthList {
	return &AuthList{byDB: make(map[string]SavedAuth)}
}

// Add inserts or replaces the saved auth for a.DBName.
func (a *AuthList) Add(auth SavedAuth) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.byDB[auth.DBName]; !exists {
		a.order = append(a.order, auth.DBName)
	}
	a.byDB[auth.DBName] = auth
}

// Remove deletes the saved auth for dbName, if any.
func (a *AuthList) Remove(dbName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.byDB[dbName]; !exists {
		return
	}
	delete(a.byDB, dbName)
	for i, d := range a.order {
		if d == dbName {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Clear removes every saved auth.
func (a *AuthList) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = nil
	a.byDB = make(map[string]SavedAuth)
}

// List returns the saved auths in insertion order, the order they must be
// replayed in on every successful master (re)connection (spec.md §3).
func (a *AuthList) List() []SavedAuth {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]SavedAuth, 0, len(a.order))
	for _, d := range a.order {
		out = append(out, a.byDB[d])
	}
	return out
}
