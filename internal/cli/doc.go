// Package cli assembles the convo commands from configuration: it opens the
// session store, loads the script directory and wires the Bot with logging
// and metrics.
package cli
