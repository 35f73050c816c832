//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flash-code/internal/domain"
	"flash-code/internal/domain/model"

	"github.com/google/uuid"
)

func seedAdmin(t *testing.T, ctx context.Context) *model.Profile {
	t.Helper()
	admin := &model.Profile{
		ID:          uuid.NewString(),
		Email:       "admin@flash.test",
		DisplayName: "admin",
		IsAdmin:     true,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	if err := NewProfileRepo(testPool).Save(ctx, nil, admin); err != nil {
		t.Fatalf("failed to save admin profile: %v", err)
	}
	return admin
}

func seedUser(t *testing.T, ctx context.Context, email string) *model.Profile {
	t.Helper()
	user, _ := model.NewProfile(uuid.NewString(), email)
	if err := NewProfileRepo(testPool).Save(ctx, nil, user); err != nil {
		t.Fatalf("failed to save user profile: %v", err)
	}
	return user
}

func TestActivationCodeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewActivationCodeRepo(testPool)

	t.Run("should insert and redeem a code exactly once", func(t *testing.T) {
		cleanup(t)
		admin := seedAdmin(t, ctx)
		user := seedUser(t, ctx, "user1@flash.test")

		code, err := model.NewActivationCode("FLASH123", admin.ID)
		if err != nil {
			t.Fatalf("NewActivationCode failed: %v", err)
		}
		if err := repo.Insert(ctx, nil, code); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		redeemed, err := repo.Redeem(ctx, nil, "FLASH123", user.ID, time.Now())
		if err != nil {
			t.Fatalf("Redeem failed: %v", err)
		}
		if !redeemed.Redeemed() {
			t.Error("expected redeemed code to satisfy the redeemed-state invariant")
		}
		if redeemed.UsedBy == nil || *redeemed.UsedBy != user.ID {
			t.Error("expected used_by to point at the redeeming user")
		}

		// Second redemption must fail with the non-enumerating error.
		if _, err := repo.Redeem(ctx, nil, "FLASH123", user.ID, time.Now()); !errors.Is(err, domain.ErrInvalidOrUsedCode) {
			t.Fatalf("expected ErrInvalidOrUsedCode for a second redemption, got %v", err)
		}
	})

	t.Run("unknown code redeems with the same error as a used one", func(t *testing.T) {
		cleanup(t)
		user := seedUser(t, ctx, "user2@flash.test")
		if _, err := repo.Redeem(ctx, nil, "NEVEREXISTED", user.ID, time.Now()); !errors.Is(err, domain.ErrInvalidOrUsedCode) {
			t.Fatalf("expected ErrInvalidOrUsedCode, got %v", err)
		}
	})

	t.Run("concurrent redemption of the same code succeeds exactly once", func(t *testing.T) {
		cleanup(t)
		admin := seedAdmin(t, ctx)
		user := seedUser(t, ctx, "racer@flash.test")

		code, _ := model.NewActivationCode("RACE2345", admin.ID)
		if err := repo.Insert(ctx, nil, code); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		const attempts = 8
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.Redeem(ctx, nil, "RACE2345", user.ID, time.Now())
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else if !errors.Is(err, domain.ErrInvalidOrUsedCode) {
				t.Fatalf("unexpected redemption error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winning redemption, got %d", wins)
		}
	})

	t.Run("duplicate code insert reports ErrDuplicateCode", func(t *testing.T) {
		cleanup(t)
		admin := seedAdmin(t, ctx)

		first, _ := model.NewActivationCode("DUP12345", admin.ID)
		if err := repo.Insert(ctx, nil, first); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		second, _ := model.NewActivationCode("DUP12345", admin.ID)
		if err := repo.Insert(ctx, nil, second); !errors.Is(err, domain.ErrDuplicateCode) {
			t.Fatalf("expected ErrDuplicateCode, got %v", err)
		}
	})

	t.Run("batch insert is atomic", func(t *testing.T) {
		cleanup(t)
		admin := seedAdmin(t, ctx)

		existing, _ := model.NewActivationCode("TAKEN999", admin.ID)
		if err := repo.Insert(ctx, nil, existing); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		fresh, _ := model.NewActivationCode("FRESH111", admin.ID)
		clash, _ := model.NewActivationCode("TAKEN999", admin.ID)
		err := repo.InsertBatch(ctx, nil, []*model.ActivationCode{fresh, clash})
		if !errors.Is(err, domain.ErrDuplicateCode) {
			t.Fatalf("expected ErrDuplicateCode from batch, got %v", err)
		}

		// The non-clashing row must have been rolled back with the batch.
		if _, err := repo.FindByCode(ctx, nil, "FRESH111"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected FRESH111 to be rolled back, got %v", err)
		}
	})

	t.Run("delete, bulk delete and delete-all-used", func(t *testing.T) {
		cleanup(t)
		admin := seedAdmin(t, ctx)
		user := seedUser(t, ctx, "user3@flash.test")

		var ids []string
		for _, c := range []string{"AAA11111", "BBB22222", "CCC33333"} {
			code, _ := model.NewActivationCode(c, admin.ID)
			if err := repo.Insert(ctx, nil, code); err != nil {
				t.Fatalf("Insert %s failed: %v", c, err)
			}
			ids = append(ids, code.ID)
		}

		// Unconditional delete by id.
		if err := repo.Delete(ctx, nil, ids[0]); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		// Bulk delete silently ignores unknown ids.
		n, err := repo.DeleteMany(ctx, nil, []string{ids[1], uuid.NewString()})
		if err != nil {
			t.Fatalf("DeleteMany failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 row deleted, got %d", n)
		}

		// Redeem the remaining code, then delete-all-used must remove it.
		if _, err := repo.Redeem(ctx, nil, "CCC33333", user.ID, time.Now()); err != nil {
			t.Fatalf("Redeem failed: %v", err)
		}
		n, err = repo.DeleteAllUsed(ctx, nil)
		if err != nil {
			t.Fatalf("DeleteAllUsed failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 used row deleted, got %d", n)
		}

		st, err := repo.CountStats(ctx, nil)
		if err != nil {
			t.Fatalf("CountStats failed: %v", err)
		}
		if st.Total != 0 {
			t.Errorf("expected an empty table, stats = %+v", st)
		}
	})

	t.Run("list returns newest first", func(t *testing.T) {
		cleanup(t)
		admin := seedAdmin(t, ctx)

		older, _ := model.NewActivationCode("OLD11111", admin.ID)
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer, _ := model.NewActivationCode("NEW11111", admin.ID)
		if err := repo.InsertBatch(ctx, nil, []*model.ActivationCode{older, newer}); err != nil {
			t.Fatalf("InsertBatch failed: %v", err)
		}

		all, err := repo.ListAll(ctx, nil)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(all) != 2 || all[0].Code != "NEW11111" {
			t.Fatalf("expected NEW11111 first, got %+v", all)
		}
	})
}
