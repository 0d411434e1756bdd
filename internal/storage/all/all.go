// Package all registers every storage backend with the factory.
//
// Blank-import this package from the binary so config can select any of the
// supported kinds at runtime.
package all

import (
	_ "moviesetl/internal/storage/mssql"
	_ "moviesetl/internal/storage/postgres"
	_ "moviesetl/internal/storage/sqlite"
)
