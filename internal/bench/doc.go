// Package bench drives a cache.Store with synthetic content records and
// measures write and read throughput. The Generator builds deterministic
// identifiers with random component payloads, the Runner executes the write
// phase (store + sync per record) and the read phase (load + optional
// verification), and Report renders the results for the CLI.
package bench
