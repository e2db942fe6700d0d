package all

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wes-public-apps/protobuf-db/internal/storage"
)

func TestBuiltinKindsRegistered(t *testing.T) {
	want := []string{"mssql", "mysql", "postgres", "sqlite"}
	if diff := cmp.Diff(want, storage.ListKinds()); diff != "" {
		t.Fatalf("ListKinds() (-want +got):\n%s", diff)
	}
}
