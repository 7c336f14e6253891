// Package migrations содержит встроенные goose-миграции схемы олимпиады.
package migrations

import "embed"

// FS — встроенные SQL миграции.
//
//go:embed *.sql
var FS embed.FS
