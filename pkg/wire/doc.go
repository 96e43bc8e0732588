/*
Package wire carries test events across a process or network boundary.

Events travel as newline-delimited JSON records. A remote child first writes a
"connected" record naming its handle, then one record per event. Suites and
tests are numbered by the Encoder; the root SuiteBegin record carries the whole
tree so the receiving side can rebuild it before the first test runs.

# Key Entities

  - Encoder / Decoder: the record codec.
  - Stream: a ports.Source fed by decoded records. A truncated input is closed
    with a failing test and the missing SuiteEnd and RunEnd events.
  - Attach: waits for readiness on a reader and connects a Stream through a
    handshake.
  - Parent: the handshake used by a child whose parent lives elsewhere.
*/
package wire
