// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init function of each concrete backend, which registers
// its factory with the storage package. Importing it makes the following
// storage kinds available to storage.New:
//
//   - "sqlite"   (internal/storage/sqlite)
//   - "postgres" (internal/storage/postgres)
//   - "mysql"    (internal/storage/mysql)
//   - "mssql"    (internal/storage/mssql)
//
// Typical usage in a wiring layer:
//
//	import _ "github.com/wes-public-apps/protobuf-db/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
//	if err != nil {
//	    return err
//	}
//	defer repo.Close()
//	sink := storage.NewTableSink(ctx, repo, kind, storage.TableOptions{AutoCreate: true})
//
// A binary that needs only a subset of backends can blank-import the
// backend packages directly instead.
package all

import (
	_ "github.com/wes-public-apps/protobuf-db/internal/storage/mssql"
	_ "github.com/wes-public-apps/protobuf-db/internal/storage/mysql"
	_ "github.com/wes-public-apps/protobuf-db/internal/storage/postgres"
	_ "github.com/wes-public-apps/protobuf-db/internal/storage/sqlite"
)
