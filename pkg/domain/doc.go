/*
Package domain contains the core types shared by every suitemux component.

It defines the test-event taxonomy, the suite hierarchy those events describe,
the lifecycle states of a Source and the error kinds reported by child contexts.
This package is kept pure and free of I/O, following the same hexagonal split as
the ports and adapters packages.

# Key Entities

  - Event: a tagged notification (RunBegin, SuiteBegin, TestPass...) from one Source.
  - Suite / Test / Hook: the hierarchy described by the events.
  - SourceInfo / SourceState: identity and lifecycle of an event Source.
  - Stats: counters aggregated over a merged run.
*/
package domain
