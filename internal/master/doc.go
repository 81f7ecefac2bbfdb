// Package master arbitrates which queued work each agent may run.
//
// Work may need exclusive ownership of several agents at once. A Controller
// keeps the active-work table (agent -> WorkEntry), the denied queue and the
// fairness timestamps, and resolves conflicts in a single synchronous,
// non-reentrant arbitration pass ordered by (priority desc, timestamp asc).
//
// Everything in this package runs on one logical thread. Callers that drive a
// Controller from several goroutines must serialize access themselves.
package master
