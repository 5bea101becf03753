/*
Package storage provides BoltDB-backed state persistence for acng.

acng is a one-shot tool: it starts, converges and exits. What must outlive a
run is kept in a single bbolt file, <data-dir>/acng.db:

	┌──────────────── acng.db ────────────────┐
	│  volumes   nickname → types.Volume JSON │
	│  runs      <unixnano>-<id> → types.Run  │
	└─────────────────────────────────────────┘

Volumes are keyed by nickname because that is how recipes refer to them; the
record carries the backing image, device and restore lineage. Run keys start
with the zero-padded start time so a reverse cursor walk yields the newest
runs first without sorting.

Opening the database takes an exclusive file lock. A second acng process
fails after LockTimeout instead of converging the same host concurrently.
*/
package storage
