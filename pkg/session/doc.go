/*
Package session serializes dialog turns per session.

The host must never run two turns of the same dialog concurrently. Manager
enforces that with a per-session mutex, optionally backed by a
ports.DistributedLocker when several replicas share one store, and offers
Update as the read-modify-write primitive a turn is built on.
*/
package session
