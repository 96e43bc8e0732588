/*
Package process runs children as separate programs.

A child location has the form exec:<name>?key=value. The name must be on the
Loader's allow-list; the query values reach the program as SUITEMUX_ARG_<KEY>
environment variables next to SUITEMUX_HANDLE, SUITEMUX_LABEL and
SUITEMUX_LOCATION. The program answers on its stdout with wire records: a
child program obtains its handshake with ParentFromEnv and usually hands it to
its own suitemux.Controller through WithParent.

A program that exits before announcing readiness is reported as a load
failure; one that exits mid-run is closed with a failing test.
*/
package process
