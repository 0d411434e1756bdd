package postgres

import "moviesetl/internal/storage"

func init() {
	storage.Register("postgres", New)
}
