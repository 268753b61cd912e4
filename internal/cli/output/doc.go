// Package output renders dblite-cli results as a table, JSON or YAML.
//
// Table output mimics an interactive session: scalars on one line,
// integers as "(integer) N", collections as numbered lines and absent
// values as "(nil)". JSON and YAML render the same data structurally.
package output
