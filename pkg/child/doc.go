/*
Package child manages the lifecycle of child execution contexts.

A child is declared with a label and a location. Its Handle resolves the
location, asks a ports.Loader to instantiate the context and waits for the
context to report readiness through the handshake (the Handle itself).

# Key Entities

  - Handle: idle -> loading -> running -> completed | failed. A timer bounds the
    loading phase; completion is idempotent and notifies the owner once.
  - Container: the set of instantiated contexts of a run, one slot per handle.
  - FailureSource: the single failing test reported in place of a child that
    never connected.
*/
package child
