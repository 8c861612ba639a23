// Package core holds the shared vocabulary of the orchestration engine:
// conversation messages, the orchestrator event stream, and the error
// taxonomy. It has no dependencies on the other engine packages so every
// layer can use it freely.
package core
