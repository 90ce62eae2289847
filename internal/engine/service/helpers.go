package service

import (
	"database/sql"
	"time"
)

func sqlString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func sqlTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}
