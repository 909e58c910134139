// Package runtime wires storage, configuration, and the log manager into a
// single-node kcvlog instance.
package runtime
