// Package archive retains terminal task records for later inspection.
//
// An Archive receives every task that reaches a terminal state and
// answers two questions afterwards: what happened to a specific task
// (Get), and which tasks match a free-text query over their kinds,
// results, and error messages (Search).
//
// Two implementations are provided: MemoryArchive for tests and
// short-lived agents, and BleveArchive for a disk-backed index that
// survives restarts.
package archive
