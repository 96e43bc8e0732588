/*
Package registry keeps the children declared for a run.

Children are declared before the run starts. Start loads all of them and calls
back once every child has either connected (its event stream is then listened
by the merger) or failed (a FailureSource stands in for it).
*/
package registry
