// Package idgen provides stubable unique identifier generation.
package idgen
