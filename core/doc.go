// Package core contains the shared leaf types of the ragmesh runtime: the
// conversation message and retrieved document values, the mutable RunState
// threaded through a single workflow run, and small concurrency primitives
// used by the façade. It has no dependencies on the routing or workflow
// layers so every other package can import it freely.
package core
