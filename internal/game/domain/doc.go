// Package domain defines the session aggregate and its supporting entities:
// participants, shared race/class catalogs, and the transient combat contest.
//
// Types here carry no behavior beyond construction, validation helpers, and
// deep copying. All mutation flows through the engine's event pipeline.
package domain
