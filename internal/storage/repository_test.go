package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vela/internal/config"
	"vela/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "vela.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func defaultCategories() []core.Category {
	out := make([]core.Category, 0, len(config.DefaultCategories))
	for _, c := range config.DefaultCategories {
		out = append(out, core.Category{Name: c.Name, Description: c.Description})
	}
	return out
}

func createTestUser(t *testing.T, repo *SQLiteRepository) *core.User {
	t.Helper()
	user := &core.User{Username: "alice", PasswordHash: "x", InitialBalance: 1000}
	if err := repo.CreateUser(context.Background(), user, defaultCategories()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestCreateUser_SeedsDefaultCategories(t *testing.T) {
	repo := newTestRepo(t)
	user := createTestUser(t, repo)

	if user.ID == 0 {
		t.Fatal("user id not assigned")
	}

	cats, err := repo.ListCategories(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(config.DefaultCategories) {
		t.Fatalf("seeded %d categories, want %d", len(cats), len(config.DefaultCategories))
	}

	got, err := repo.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.InitialBalance != 1000 {
		t.Errorf("InitialBalance = %v, want 1000", got.InitialBalance)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	createTestUser(t, repo)

	dup := &core.User{Username: "alice", PasswordHash: "y"}
	if err := repo.CreateUser(context.Background(), dup, nil); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("CreateUser = %v, want ErrUsernameTaken", err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	user := createTestUser(t, repo)
	ctx := context.Background()

	cats, _ := repo.ListCategories(ctx, user.ID)
	catID := cats[0].ID

	tx := &core.Transaction{
		UserID:       user.ID,
		CategoryID:   &catID,
		Amount:       250.50,
		Kind:         core.KindExpense,
		Description:  "hotel",
		DurationDays: 10,
		StartDate:    core.NewDate(2025, 3, 1),
	}
	tx.DeriveEndDate()

	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	got, err := repo.GetTransaction(ctx, user.ID, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Amount != 250.50 || got.Kind != core.KindExpense || got.DurationDays != 10 {
		t.Errorf("got %+v", got)
	}
	if got.CategoryID == nil || *got.CategoryID != catID {
		t.Errorf("CategoryID = %v, want %d", got.CategoryID, catID)
	}
	if got.EndDate == nil || got.EndDate.String() != "2025-03-11" {
		t.Errorf("EndDate = %v, want 2025-03-11", got.EndDate)
	}

	// Other users never see it.
	if _, err := repo.GetTransaction(ctx, user.ID+1, tx.ID); err != ErrNotFound {
		t.Errorf("cross-user get = %v, want ErrNotFound", err)
	}
}

func TestListTransactions_Filters(t *testing.T) {
	repo := newTestRepo(t)
	user := createTestUser(t, repo)
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2025, 1, 15),
		core.NewDate(2025, 2, 15),
		core.NewDate(2025, 3, 15),
	}
	for _, d := range dates {
		tx := &core.Transaction{UserID: user.ID, Amount: 10, Kind: core.KindIncome, StartDate: d}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	all, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}

	start := core.NewDate(2025, 2, 1)
	end := core.NewDate(2025, 2, 28)
	feb, err := repo.ListTransactions(ctx, user.ID, TransactionFilter{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(feb) != 1 || feb[0].StartDate.String() != "2025-02-15" {
		t.Errorf("range filter returned %+v", feb)
	}
}

func TestUpdateTransaction(t *testing.T) {
	repo := newTestRepo(t)
	user := createTestUser(t, repo)
	ctx := context.Background()

	tx := &core.Transaction{UserID: user.ID, Amount: 100, Kind: core.KindExpense, StartDate: core.NewDate(2025, 3, 1)}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	tx.Amount = 120
	tx.DurationDays = 6
	tx.DeriveEndDate()
	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	got, _ := repo.GetTransaction(ctx, user.ID, tx.ID)
	if got.Amount != 120 || got.EndDate == nil || got.EndDate.String() != "2025-03-07" {
		t.Errorf("got %+v", got)
	}

	missing := &core.Transaction{ID: 9999, UserID: user.ID, Kind: core.KindIncome, StartDate: core.NewDate(2025, 1, 1)}
	if err := repo.UpdateTransaction(ctx, missing); err != ErrNotFound {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestDeleteCategory_ReassignsToFallback(t *testing.T) {
	repo := newTestRepo(t)
	user := createTestUser(t, repo)
	ctx := context.Background()

	cats, _ := repo.ListCategories(ctx, user.ID)
	var food, other int64
	for _, c := range cats {
		switch c.Name {
		case "Food":
			food = c.ID
		case config.FallbackCategory:
			other = c.ID
		}
	}

	tx := &core.Transaction{UserID: user.ID, CategoryID: &food, Amount: 30, Kind: core.KindExpense, StartDate: core.NewDate(2025, 3, 1)}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := repo.DeleteCategory(ctx, user.ID, food, config.FallbackCategory); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, err := repo.GetTransaction(ctx, user.ID, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.CategoryID == nil || *got.CategoryID != other {
		t.Errorf("CategoryID = %v, want fallback %d", got.CategoryID, other)
	}

	if _, err := repo.GetCategory(ctx, user.ID, food); err != ErrNotFound {
		t.Errorf("deleted category still present: %v", err)
	}
}

func TestDeleteCategory_FallbackProtected(t *testing.T) {
	repo := newTestRepo(t)
	user := createTestUser(t, repo)
	ctx := context.Background()

	cats, _ := repo.ListCategories(ctx, user.ID)
	for _, c := range cats {
		if c.Name == config.FallbackCategory {
			err := repo.DeleteCategory(ctx, user.ID, c.ID, config.FallbackCategory)
			if !errors.Is(err, ErrFallbackCategory) {
				t.Errorf("DeleteCategory = %v, want ErrFallbackCategory", err)
			}
		}
	}
}
