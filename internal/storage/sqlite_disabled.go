//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	logx "homeworkbot/pkg/logx"
)

func openSQLite(_ Config, _ logx.Logger) (Store, error) {
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
