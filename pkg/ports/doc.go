/*
Package ports defines the interfaces between the suitemux core and its adapters.

These interfaces decouple the merger and the child lifecycle from the mechanism that
produces events (an in-process suite, a subprocess, an HTTP endpoint, a Redis worker)
and from the sink that renders them.

# Key Interfaces

  - Source / Runnable: an event stream, optionally driven by the current process.
  - Stream: the merged stream handed to reporting sinks.
  - Loader / Instance / Handshake: instantiation of isolated child contexts and the
    explicit link back to the handle that created them.
*/
package ports
