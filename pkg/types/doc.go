// Package types defines the public identifiers, property tags, option
// structs and the typed error taxonomy shared by the pstkit packages.
//
// The package is deliberately small: it carries no parsing logic and no
// state, so both the internal reader and external callers can depend on it
// without cycles.
package types
