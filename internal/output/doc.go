// Package output renders registry query results.
//
// The package is organized around three concerns:
//
//   - Reports (report.go): [Report] and [Result] describe the capabilities
//     that satisfied one query or requirement, converted from registry
//     entries into plain values.
//
//   - Formatting (registry.go, serializer.go, table.go): a [Registry] maps
//     format names (table, json, yaml) to [Formatter] implementations.
//
//   - Writers (writer.go): Pluggable output destinations via the [Writer]
//     interface, with [StdoutWriter] and [FileWriter] implementations.
package output
