// Package app assembles the web application: it loads the HCL configuration,
// builds the session for the selected workflow, wires the state poller, and
// serves the graph and tree pages.
package app
