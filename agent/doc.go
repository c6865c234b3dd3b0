// Package agent assembles the task core into runnable agents.
//
// A TaskAgent owns a priority queue, a bounded worker pool, and a
// lifecycle state machine, and guarantees that every accepted task
// reaches a terminal state even across a forced shutdown. A
// MonitorAgent observes the shared event bus and keeps counters
// without executing anything. The Factory creates either by type
// name so hosts can drive assembly from configuration.
package agent
