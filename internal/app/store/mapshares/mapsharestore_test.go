package mapsharestore_test

import (
	"errors"
	"sync"
	"testing"

	mapsharestore "github.com/dalemusser/flyspot/internal/app/store/mapshares"
	"github.com/dalemusser/flyspot/internal/domain/models"
	"github.com/dalemusser/flyspot/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := mapsharestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mapID := primitive.NewObjectID()

	sh, created, err := store.Upsert(ctx, mapID, "Friend@Example.com", nil, "")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("expected a new row")
	}
	if sh.Role != models.ShareRead {
		t.Errorf("default role = %q, want READ", sh.Role)
	}
	if sh.InvitedEmail != "friend@example.com" {
		t.Errorf("email = %q", sh.InvitedEmail)
	}
	if sh.InvitedUserID != nil {
		t.Error("pending invite should have no user id")
	}

	again, created, err := store.Upsert(ctx, mapID, "friend@example.com", nil, "write")
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if created {
		t.Error("second grant should update the same row")
	}
	if again.ID != sh.ID || again.Role != models.ShareWrite {
		t.Errorf("unexpected share after update: %+v", again)
	}

	all, _ := store.ListByMap(ctx, mapID)
	if len(all) != 1 {
		t.Errorf("got %d shares, want 1", len(all))
	}

	if _, _, err := store.Upsert(ctx, mapID, "  ", nil, "READ"); !errors.Is(err, mapsharestore.ErrEmailRequired) {
		t.Errorf("expected ErrEmailRequired, got %v", err)
	}
}

func TestStore_UpsertConcurrentGrants(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := mapsharestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mapID := primitive.NewObjectID()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	created := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created[i], errs[i] = store.Upsert(ctx, mapID, "race@example.com", nil, "WRITE")
		}(i)
	}
	wg.Wait()

	inserted := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Upsert %d failed: %v", i, errs[i])
		}
		if created[i] {
			inserted++
		}
	}
	if inserted != 1 {
		t.Errorf("%d calls reported an insert, want 1", inserted)
	}

	all, err := store.ListByMap(ctx, mapID)
	if err != nil {
		t.Fatalf("ListByMap failed: %v", err)
	}
	if len(all) != 1 || all[0].Role != models.ShareWrite {
		t.Errorf("unexpected shares after concurrent grants: %+v", all)
	}
}

func TestStore_UpdateRoleAndRemove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := mapsharestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mapID := primitive.NewObjectID()
	sh, _, _ := store.Upsert(ctx, mapID, "a@example.com", nil, models.ShareRead)

	got, err := store.UpdateRole(ctx, mapID, sh.ID, models.ShareWrite)
	if err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}
	if got.Role != models.ShareWrite {
		t.Errorf("role = %q", got.Role)
	}

	// a share id from another map does not match
	if _, err := store.UpdateRole(ctx, primitive.NewObjectID(), sh.ID, models.ShareRead); !errors.Is(err, mapsharestore.ErrNotFound) {
		t.Errorf("cross-map update: %v", err)
	}

	if _, err := store.Remove(ctx, mapID, sh.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Remove(ctx, mapID, sh.ID); !errors.Is(err, mapsharestore.ErrNotFound) {
		t.Errorf("second Remove: %v", err)
	}
}

func TestStore_ClaimAndListForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := mapsharestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m1, m2 := primitive.NewObjectID(), primitive.NewObjectID()
	store.Upsert(ctx, m1, "late@example.com", nil, models.ShareRead)
	store.Upsert(ctx, m2, "late@example.com", nil, models.ShareWrite)

	userID := primitive.NewObjectID()
	n, err := store.ClaimByEmail(ctx, userID, "LATE@example.com")
	if err != nil {
		t.Fatalf("ClaimByEmail failed: %v", err)
	}
	if n != 2 {
		t.Errorf("claimed %d, want 2", n)
	}

	ids, err := store.UserIDs(ctx, m1)
	if err != nil || len(ids) != 1 || ids[0] != userID {
		t.Errorf("UserIDs = %v, %v", ids, err)
	}

	// matched by id even when the email no longer matches
	shares, err := store.ListForUser(ctx, userID, "renamed@example.com")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(shares) != 2 {
		t.Errorf("got %d shares, want 2", len(shares))
	}
}

func TestStore_Leave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := mapsharestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mapID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	store.Upsert(ctx, mapID, "me@example.com", &userID, models.ShareRead)
	store.Upsert(ctx, mapID, "other@example.com", nil, models.ShareRead)

	n, err := store.Leave(ctx, mapID, userID, "me@example.com")
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	left, _ := store.ListByMap(ctx, mapID)
	if len(left) != 1 || left[0].InvitedEmail != "other@example.com" {
		t.Errorf("unexpected remaining shares: %+v", left)
	}
}
