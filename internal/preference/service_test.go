package preference

import (
	"encoding/json"
	"testing"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s), s
}

func TestCreateGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create("user-1", "theme", json.RawMessage(`"dark"`), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Type != "string" {
		t.Errorf("expected inferred type string, got %s", created.Type)
	}

	got, err := svc.Get("user-1", "theme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Data) != `"dark"` {
		t.Errorf("unexpected data: %s", got.Data)
	}
}

func TestCreateDuplicateConflict(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create("user-1", "theme", json.RawMessage(`"dark"`), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create("user-1", "theme", json.RawMessage(`"light"`), "")
	if !apperr.IsConflict(err) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestReservedNamespaceRejected(t *testing.T) {
	svc, _ := newTestService(t)

	for _, key := range []string{"location.home", "food_preferences.default", "food_preferences.location.home"} {
		if _, err := svc.Create("user-1", key, json.RawMessage(`{}`), ""); !apperr.IsValidation(err) {
			t.Errorf("expected Validation for reserved key %s, got %v", key, err)
		}
	}
}

func TestListExcludesManagedNamespaces(t *testing.T) {
	svc, s := newTestService(t)

	if _, err := svc.Create("user-1", "theme", json.RawMessage(`"dark"`), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create("user-1", "timezone", json.RawMessage(`"UTC"`), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// A location record written through its own service must not leak into
	// the plain preference listing.
	if _, err := s.Put("user-1", "location.home", []byte(`{}`), store.Hints{RecordType: "location"}); err != nil {
		t.Fatalf("Put location: %v", err)
	}

	prefs, err := svc.List("user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("expected 2 preferences, got %d", len(prefs))
	}

	keys, err := svc.ListKeys("user-1")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Update("user-1", "theme", json.RawMessage(`"light"`)); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound on update of missing key, got %v", err)
	}

	if _, err := svc.Create("user-1", "theme", json.RawMessage(`"dark"`), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := svc.Update("user-1", "theme", json.RawMessage(`"light"`))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if string(updated.Data) != `"light"` {
		t.Errorf("unexpected data after update: %s", updated.Data)
	}

	if err := svc.Delete("user-1", "theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete("user-1", "theme"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}
}

func TestImportUpserts(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Import("user-1", "langs", json.RawMessage(`["go","rust"]`)); err != nil {
		t.Fatalf("Import: %v", err)
	}
	p, err := svc.Import("user-1", "langs", json.RawMessage(`["go"]`))
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if string(p.Data) != `["go"]` {
		t.Errorf("expected replacement, got %s", p.Data)
	}
	if p.Type != "array" {
		t.Errorf("expected inferred array type, got %s", p.Type)
	}
}
