// Package analysiscache persists completed content analyses keyed by
// platform media ID, plus an archive of terminal job snapshots, in a local
// SQLite database. Entries honor a configurable TTL.
package analysiscache
