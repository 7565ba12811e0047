// Package session keeps a bounded pool of warm language server processes.
//
// Each Session binds one persistent process to a project path. The Pool owns
// every session: it creates them with capacity-based eviction of the least
// recently used entry, touches them on lookup, removes them on request and
// sweeps idle ones on a fixed period. Time is read from an injectable Clock.
package session
