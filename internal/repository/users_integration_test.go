//go:build integration

package repository_test

import (
	"errors"
	"testing"

	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/repository"
	"github.com/productcatalog/catalog/internal/testutil"
)

func TestIntegrationUsers_CreateAndGet(t *testing.T) {
	ctx, repo := testutil.NewTestRepository(t)

	user := testutil.NewTestUser(t, "alice@example.com", true)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("CreateUser should assign an id")
	}

	byID, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != user.Email || !byID.IsAdmin || byID.PasswordHash != user.PasswordHash {
		t.Errorf("GetUserByID = %+v, want %+v", byID, user)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail id = %d, want %d", byEmail.ID, user.ID)
	}
}

func TestIntegrationUsers_DuplicateEmail(t *testing.T) {
	ctx, repo := testutil.NewTestRepository(t)

	if err := repo.CreateUser(ctx, testutil.NewTestUser(t, "dup@example.com", false)); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := repo.CreateUser(ctx, testutil.NewTestUser(t, "dup@example.com", false))
	if !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	n, err := repo.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountUsers = %d, want 1", n)
	}
}

func TestIntegrationUsers_UpdateAndDelete(t *testing.T) {
	ctx, repo := testutil.NewTestRepository(t)

	a := testutil.NewTestUser(t, "a@example.com", true)
	b := testutil.NewTestUser(t, "b@example.com", true)
	for _, u := range []*model.User{a, b} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	b.Email = "a@example.com"
	if err := repo.UpdateUser(ctx, b); !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists on email clash, got %v", err)
	}

	b.Email = "b2@example.com"
	b.IsAdmin = false
	if err := repo.UpdateUser(ctx, b); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	admins, err := repo.ListAdminEmails(ctx, 0)
	if err != nil {
		t.Fatalf("ListAdminEmails failed: %v", err)
	}
	if len(admins) != 1 || admins[0] != "a@example.com" {
		t.Errorf("ListAdminEmails = %v, want [a@example.com]", admins)
	}

	if err := repo.DeleteUser(ctx, a.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := repo.DeleteUser(ctx, a.ID); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("second delete: expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.GetUserByID(ctx, a.ID); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	missing := testutil.NewTestUser(t, "ghost@example.com", false)
	missing.ID = 424242
	if err := repo.UpdateUser(ctx, missing); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("update of missing user: expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationUsers_ListOrdered(t *testing.T) {
	ctx, repo := testutil.NewTestRepository(t)

	for _, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		if err := repo.CreateUser(ctx, testutil.NewTestUser(t, email, false)); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListUsers returned %d users, want 3", len(users))
	}
	for i := 1; i < len(users); i++ {
		if users[i-1].ID >= users[i].ID {
			t.Errorf("users not ordered by id: %d before %d", users[i-1].ID, users[i].ID)
		}
	}
}
