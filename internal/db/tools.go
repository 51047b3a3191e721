//go:build tools

package db

import (
	_ "github.com/sqlc-dev/sqlc/cmd/sqlc"
)
