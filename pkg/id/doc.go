// Package id generates process-local, lexicographically sortable 128-bit
// identifiers. kcvlog uses them to derive unique sender identities for log
// instances running on the same host.
package id
