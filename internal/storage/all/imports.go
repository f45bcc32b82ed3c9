// Package all wires every built-in storage backend into the storage factory.
// Import it for side effects only:
//
//	import _ "flatloader/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres", "mssql", "mysql" and
// "sqlite".
package all

import (
	_ "flatloader/internal/storage/mssql"
	_ "flatloader/internal/storage/mysql"
	_ "flatloader/internal/storage/postgres"
	_ "flatloader/internal/storage/sqlite"
)
