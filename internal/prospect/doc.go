// Package prospect defines the shared data model of the discovery, scoring
// and audit pipeline together with the ports its adapters implement.
package prospect
