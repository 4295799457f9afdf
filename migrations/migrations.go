// Package migrations embeds the versioned schema applied by
// "claimcoder migrate up".
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
