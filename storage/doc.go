// Package storage provides the key/value backends behind memoized functions.
//
// Every backend addresses entries by (tag, digest) and implements either the
// blocking Storage contract or the suspend-capable AsyncStorage contract.
// Dispatch selects the contract once and fixes it for the caller's lifetime.
//
// # Backends
//
//   - SQLite: the default, a single table in an embedded database
//     (modernc.org/sqlite). Default returns a process-wide instance under
//     .miniperscache/ in the working directory.
//   - File: one file per entry on an afero filesystem.
//   - Redis: one hash per tag.
//   - Memory: an in-process map for tests.
//
// Async wraps any blocking backend as an AsyncStorage.
package storage
