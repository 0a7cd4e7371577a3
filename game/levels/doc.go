// Package levels provides level sources: a directory of JSON boards and a
// PostgreSQL table. Both validate every level they hand out.
package levels
