package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/models"
	"filedrop/internal/types"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)

	user := SessionUser{UserID: 7, Username: "alice", IsAdmin: true}
	token := store.Create(user)
	if token == "" {
		t.Fatal("Expected a non-empty token")
	}

	got, ok := store.Get(token)
	if !ok {
		t.Fatal("Expected session to be live")
	}
	if got != user {
		t.Errorf("Expected %+v, got %+v", user, got)
	}

	// Tokens are unique per session
	if other := store.Create(user); other == token {
		t.Error("Expected distinct tokens for distinct sessions")
	}

	store.Delete(token)
	if _, ok := store.Get(token); ok {
		t.Error("Expected session to be gone after delete")
	}

	// Unknown tokens miss cleanly
	if _, ok := store.Get("no-such-token"); ok {
		t.Error("Expected unknown token to miss")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)

	token := store.Create(SessionUser{UserID: 1, Username: "bob"})
	if _, ok := store.Get(token); !ok {
		t.Fatal("Expected fresh session to be live")
	}

	time.Sleep(25 * time.Millisecond)
	if _, ok := store.Get(token); ok {
		t.Error("Expected session to expire")
	}
}

func TestSessionSweepOnCreate(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)

	// Abandoned sessions: expired but never looked up again
	for i := 0; i < 5; i++ {
		store.Create(SessionUser{UserID: uint64(i), Username: "ghost"})
	}
	time.Sleep(25 * time.Millisecond)

	token := store.Create(SessionUser{UserID: 9, Username: "eve"})

	if n := len(store.sessions); n != 1 {
		t.Errorf("Expected sweep to leave 1 session, got %d", n)
	}
	if _, ok := store.Get(token); !ok {
		t.Error("Expected the fresh session to survive the sweep")
	}
}

// appErrorToStatus mirrors the server's error handler for middleware tests
func appErrorToStatus(c *fiber.Ctx, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Code).JSON(fiber.Map{"message": appErr.Message, "ok": false})
	}
	return fiber.DefaultErrorHandler(c, err)
}

func TestRequireAuth(t *testing.T) {
	store := NewSessionStore(time.Hour)
	app := fiber.New(fiber.Config{ErrorHandler: appErrorToStatus})
	app.Get("/protected", RequireAuth(store), func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			t.Error("Expected CurrentUser to resolve inside the handler")
		}
		return c.JSON(fiber.Map{"username": user.Username})
	})

	// No cookie
	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 without cookie, got %d", resp.StatusCode)
	}

	// Garbage token
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Cookie", SessionCookieName+"=bogus")
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 with bogus token, got %d", resp.StatusCode)
	}

	// Valid session
	token := store.Create(SessionUser{UserID: 3, Username: "carol"})
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+token)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 with valid session, got %d", resp.StatusCode)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// A pooled second connection would see an empty memory database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestRequireAdmin(t *testing.T) {
	db := setupTestDB(t)
	dave := models.User{Username: "dave", Name: "Dave", PasswordHash: "x"}
	root := models.User{Username: "root", Name: "Root", PasswordHash: "x", IsAdmin: true}
	for _, u := range []*models.User{&dave, &root} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	store := NewSessionStore(time.Hour)
	app := fiber.New(fiber.Config{ErrorHandler: appErrorToStatus})
	app.Get("/admin", RequireAuth(store), RequireAdmin(db), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	userToken := store.Create(SessionUser{UserID: dave.UserID, Username: "dave"})
	adminToken := store.Create(SessionUser{UserID: root.UserID, Username: "root", IsAdmin: true})

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+userToken)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 for non-admin, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+adminToken)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for admin, got %d", resp.StatusCode)
	}

	// Revoking the flag in the database locks the live session out
	if err := db.Model(&root).Update("is_admin", false).Error; err != nil {
		t.Fatalf("Failed to revoke admin: %v", err)
	}
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+adminToken)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 after revocation, got %d", resp.StatusCode)
	}

	// A session whose user row is gone is no longer admin
	if err := db.Delete(&models.User{}, "user_id = ?", dave.UserID).Error; err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+userToken)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 for deleted user, got %d", resp.StatusCode)
	}
}
