package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約の再試行が尽きた
	ErrConflict = errors.New("conflict")
)
