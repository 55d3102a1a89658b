/*
Package observability provides Prometheus instrumentation for the experience engine.

Metrics observes state machine results through a lifecycle.Observer and action executions
through actions.Hooks, so both halves of the engine are covered without either one importing
the prometheus client.
*/
package observability
