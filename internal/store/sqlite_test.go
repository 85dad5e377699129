package store

import (
	"errors"
	"fmt"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Put("user-1", "location.home", []byte(`{"nickname":"Home"}`), Hints{
		LocationTag: "home",
		RecordType:  "location",
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated record ID")
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be stamped")
	}

	got, err := s.Get("user-1", "location.home")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Owner != "user-1" || got.Key != "location.home" {
		t.Errorf("unexpected record identity: %s/%s", got.Owner, got.Key)
	}
	if string(got.Payload) != `{"nickname":"Home"}` {
		t.Errorf("unexpected payload: %s", got.Payload)
	}
	if got.LocationTag != "home" || got.RecordType != "location" {
		t.Errorf("unexpected hints: %s/%s", got.LocationTag, got.RecordType)
	}
}

func TestGetAbsent(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("user-1", "location.work")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestPutDuplicate verifies the schema-level uniqueness backstop: the second
// insert at the same (owner, key) fails even without any read-check.
func TestPutDuplicate(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Put("user-1", "location.home", []byte(`{}`), Hints{}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	_, err := s.Put("user-1", "location.home", []byte(`{"a":1}`), Hints{})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Same key under a different owner is fine.
	if _, err := s.Put("user-2", "location.home", []byte(`{}`), Hints{}); err != nil {
		t.Errorf("Put for second owner: %v", err)
	}
}

func TestUpsertReplacesPayload(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Upsert("user-1", "food_preferences.default", []byte(`{"preferences":[]}`), Hints{RecordType: "food_preferences"})
	if err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	second, err := s.Upsert("user-1", "food_preferences.default", []byte(`{"preferences":[{"category":"pizza","level":"love"}]}`), Hints{RecordType: "food_preferences"})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert should keep the original row id: %s != %s", second.ID, first.ID)
	}
	if string(second.Payload) == string(first.Payload) {
		t.Error("payload was not replaced")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on upsert: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Put("user-1", "pref.theme", []byte(`"dark"`), Hints{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	existed, err := s.Delete("user-1", "pref.theme")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !existed {
		t.Error("expected Delete to report an existing record")
	}

	existed, err = s.Delete("user-1", "pref.theme")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if existed {
		t.Error("expected second Delete to report absence")
	}
}

func TestQueryByOwnerAndType(t *testing.T) {
	s := openTestStore(t)

	for i, key := range []string{"location.home", "location.work", "location.user_defined.cabin"} {
		payload := fmt.Sprintf(`{"n":%d}`, i)
		if _, err := s.Put("user-1", key, []byte(payload), Hints{RecordType: "location"}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	if _, err := s.Put("user-1", "food_preferences.default", []byte(`{}`), Hints{RecordType: "food_preferences"}); err != nil {
		t.Fatalf("Put default prefs: %v", err)
	}
	if _, err := s.Put("user-2", "location.home", []byte(`{}`), Hints{RecordType: "location"}); err != nil {
		t.Fatalf("Put other owner: %v", err)
	}

	recs, err := s.QueryByOwnerAndType("user-1", "location")
	if err != nil {
		t.Fatalf("QueryByOwnerAndType: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 location records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Owner != "user-1" || r.RecordType != "location" {
			t.Errorf("stray record in result: %s/%s type=%s", r.Owner, r.Key, r.RecordType)
		}
	}
}

func TestQueryByOwnerAndLocationTag(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Put("user-1", "location.home", []byte(`{}`), Hints{LocationTag: "home", RecordType: "location"}); err != nil {
		t.Fatalf("Put location: %v", err)
	}
	if _, err := s.Put("user-1", "food_preferences.location.home", []byte(`{}`), Hints{LocationTag: "home", RecordType: "food_preferences"}); err != nil {
		t.Fatalf("Put override: %v", err)
	}

	recs, err := s.QueryByOwnerAndLocationTag("user-1", "home")
	if err != nil {
		t.Fatalf("QueryByOwnerAndLocationTag: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records tagged home, got %d", len(recs))
	}
}

func TestQueryByOwnerAndKeyPrefix(t *testing.T) {
	s := openTestStore(t)

	keys := []string{
		"food_preferences.default",
		"food_preferences.location.home",
		"food_preferences.location.user_defined.cabin",
		"location.home",
	}
	for _, k := range keys {
		if _, err := s.Put("user-1", k, []byte(`{}`), Hints{}); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	recs, err := s.QueryByOwnerAndKeyPrefix("user-1", "food_preferences.location.")
	if err != nil {
		t.Fatalf("QueryByOwnerAndKeyPrefix: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 override records, got %d", len(recs))
	}
}

func TestOwners(t *testing.T) {
	s := openTestStore(t)

	for _, owner := range []string{"b-user", "a-user", "b-user"} {
		key := fmt.Sprintf("pref.%s", owner)
		s.Upsert(owner, key, []byte(`{}`), Hints{})
	}

	owners, err := s.Owners()
	if err != nil {
		t.Fatalf("Owners: %v", err)
	}
	if len(owners) != 2 || owners[0] != "a-user" || owners[1] != "b-user" {
		t.Errorf("unexpected owners: %v", owners)
	}
}
