// Package state provides the in-memory keyed tables that hold per-user
// conversation records. Tables are safe for concurrent use and track when each
// entry was last written so idle entries can be swept.
package state
