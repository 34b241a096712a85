package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"filedrop/internal/handlers"
	"filedrop/internal/middleware"
	"filedrop/internal/models"
	"filedrop/internal/storage"
	"filedrop/internal/types"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying SQL DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.FileAccess{},
		&models.DownloadLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// newTestApp wires the full route surface the way the server does
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}
	sessions := middleware.NewSessionStore(time.Hour)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := err.Error()
			var appErr *types.AppError
			if errors.As(err, &appErr) {
				code = appErr.Code
				message = appErr.Message
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  code,
				"message": message,
				"ok":      false,
			})
		},
	})

	authHandler := &handlers.AuthHandler{DB: db, Sessions: sessions}
	fileHandler := &handlers.FileHandler{DB: db, Store: store}
	adminHandler := &handlers.AdminHandler{DB: db}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)

	files := api.Group("/files", middleware.RequireAuth(sessions))
	files.Get("/", fileHandler.List)
	files.Post("/", middleware.RequireAdmin(db), fileHandler.Upload)
	files.Get("/:id/download", fileHandler.Download)
	files.Delete("/:id", middleware.RequireAdmin(db), fileHandler.Delete)

	admin := api.Group("/admin", middleware.RequireAuth(sessions), middleware.RequireAdmin(db))
	admin.Get("/permissions", adminHandler.GetPermissions)
	admin.Post("/permissions", adminHandler.SetPermissions)

	return app, db
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func seedAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("Admin!123"), bcrypt.MinCost)
	admin := models.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Name:         "Administrator",
		IsAdmin:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}
	return &admin
}

// login performs the signup (optional) and login dance and returns the
// session cookie
func login(t *testing.T, app *fiber.App, username, password string) *http.Cookie {
	t.Helper()
	req := jsonRequest("POST", "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Login failed with status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("Login did not set the session cookie")
	return nil
}

func signup(t *testing.T, app *fiber.App, username, password string) {
	t.Helper()
	req := jsonRequest("POST", "/api/auth/signup", map[string]string{
		"username":   username,
		"name":       "Test " + username,
		"password":   password,
		"password_2": password,
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Signup request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Fatalf("Signup failed with status %d", resp.StatusCode)
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/api/files/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSignupEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := jsonRequest("POST", "/api/auth/signup", map[string]string{
		"username":   "alice",
		"name":       "Alice",
		"password":   "Secret!123",
		"password_2": "Secret!123",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	resp.Body.Close()
	user, _ := result["user"].(map[string]interface{})
	if user == nil {
		t.Fatal("Expected user in response")
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("Password hash leaked into the response")
	}

	// Mismatched confirmation
	req = jsonRequest("POST", "/api/auth/signup", map[string]string{
		"username":   "bob",
		"password":   "Secret!123",
		"password_2": "other",
	})
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400 for mismatch, got %d", resp.StatusCode)
	}

	// Duplicate username
	req = jsonRequest("POST", "/api/auth/signup", map[string]string{
		"username":   "alice",
		"password":   "Secret!123",
		"password_2": "Secret!123",
	})
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Errorf("Expected status 409 for duplicate, got %d", resp.StatusCode)
	}

	// Missing fields
	req = jsonRequest("POST", "/api/auth/signup", map[string]string{"username": "carol"})
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400 for missing password, got %d", resp.StatusCode)
	}
}

func TestLoginLogout(t *testing.T) {
	app, _ := newTestApp(t)
	signup(t, app, "dave", "Secret!123")

	cookie := login(t, app, "dave", "Secret!123")

	// Session works
	req := httptest.NewRequest("GET", "/api/files/", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 with session, got %d", resp.StatusCode)
	}

	// Logout invalidates the session server-side
	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(cookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for logout, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/files/", nil)
	req.AddCookie(cookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 after logout, got %d", resp.StatusCode)
	}

	// Bad credentials
	req = jsonRequest("POST", "/api/auth/login", map[string]string{
		"username": "dave",
		"password": "wrong",
	})
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 for bad credentials, got %d", resp.StatusCode)
	}
}

func TestFilesRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/files/", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 without session, got %d", resp.StatusCode)
	}
}

func TestUploadRequiresAdmin(t *testing.T) {
	app, _ := newTestApp(t)
	signup(t, app, "erin", "Secret!123")
	cookie := login(t, app, "erin", "Secret!123")

	req := uploadRequest(t, "blocked.txt", []byte("nope"))
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 for non-admin upload, got %d", resp.StatusCode)
	}
}

func TestDownloadLifecycle(t *testing.T) {
	app, db := newTestApp(t)
	seedAdmin(t, db)
	adminCookie := login(t, app, "admin", "Admin!123")

	signup(t, app, "frank", "Secret!123")
	userCookie := login(t, app, "frank", "Secret!123")

	// Admin uploads
	req := uploadRequest(t, "report.txt", []byte("report body"))
	req.AddCookie(adminCookie)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("Expected status 201 for upload, got %d", resp.StatusCode)
	}
	var uploadResult struct {
		File struct {
			FileID uint64 `json:"file_id"`
		} `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResult); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	resp.Body.Close()
	fileID := uploadResult.File.FileID
	if fileID == 0 {
		t.Fatal("Upload response missing file id")
	}

	// Duplicate filename conflicts
	req = uploadRequest(t, "report.txt", []byte("other"))
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 409 {
		t.Errorf("Expected status 409 for duplicate upload, got %d", resp.StatusCode)
	}

	// The existing user was provisioned and can download
	downloadURL := "/api/files/" + itoa(fileID) + "/download"
	req = httptest.NewRequest("GET", downloadURL, nil)
	req.AddCookie(userCookie)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200 for download, got %d: %s", resp.StatusCode, string(body))
	}
	if string(body) != "report body" {
		t.Errorf("Unexpected download content: %q", string(body))
	}

	// The download went into the ledger
	var count int64
	db.Model(&models.DownloadLog{}).Where("file_id = ?", fileID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 ledger row, got %d", count)
	}

	// Revoke, then deny
	req = jsonRequest("POST", "/api/admin/permissions", map[string]interface{}{
		"user_id":    2, // frank follows the seeded admin
		"file_id":    fileID,
		"permission": false,
	})
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200 for revoke, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", downloadURL, nil)
	req.AddCookie(userCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 after revoke, got %d", resp.StatusCode)
	}

	// Admin downloads regardless
	req = httptest.NewRequest("GET", downloadURL, nil)
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for admin download, got %d", resp.StatusCode)
	}

	// Unknown id is 404, not 403
	req = httptest.NewRequest("GET", "/api/files/4242/download", nil)
	req.AddCookie(userCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404 for unknown file, got %d", resp.StatusCode)
	}

	// Delete, then the file is gone for everyone
	req = httptest.NewRequest("DELETE", "/api/files/"+itoa(fileID), nil)
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200 for delete, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", downloadURL, nil)
	req.AddCookie(userCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404 after delete, got %d", resp.StatusCode)
	}

	// Repeat delete reports the missing row
	req = httptest.NewRequest("DELETE", "/api/files/"+itoa(fileID), nil)
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404 for repeat delete, got %d", resp.StatusCode)
	}
}

func TestListCatalog(t *testing.T) {
	app, db := newTestApp(t)
	seedAdmin(t, db)
	adminCookie := login(t, app, "admin", "Admin!123")

	signup(t, app, "grace", "Secret!123")
	userCookie := login(t, app, "grace", "Secret!123")

	req := uploadRequest(t, "catalog.txt", []byte("x"))
	req.AddCookie(adminCookie)
	resp, _ := app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Fatalf("Upload failed with status %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/files/", nil)
	req.AddCookie(userCookie)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var result struct {
		Files []struct {
			Filename string `json:"filename"`
			Allowed  bool   `json:"allowed"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	resp.Body.Close()
	if len(result.Files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(result.Files))
	}
	if result.Files[0].Filename != "catalog.txt" || !result.Files[0].Allowed {
		t.Errorf("Unexpected catalog entry: %+v", result.Files[0])
	}
}

func TestPermissionsEndpoint(t *testing.T) {
	app, db := newTestApp(t)
	seedAdmin(t, db)
	adminCookie := login(t, app, "admin", "Admin!123")

	signup(t, app, "henry", "Secret!123")
	userCookie := login(t, app, "henry", "Secret!123")

	req := uploadRequest(t, "perm.txt", []byte("x"))
	req.AddCookie(adminCookie)
	resp, _ := app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Fatalf("Upload failed with status %d", resp.StatusCode)
	}

	// Non-admins never reach the grant matrix
	req = httptest.NewRequest("GET", "/api/admin/permissions", nil)
	req.AddCookie(userCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403 for non-admin, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/admin/permissions", nil)
	req.AddCookie(adminCookie)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Matrix request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var matrix struct {
		Users []struct {
			UserID   uint64 `json:"user_id"`
			Username string `json:"username"`
		} `json:"users"`
		Files []struct {
			FileID      uint64          `json:"file_id"`
			Permissions map[string]bool `json:"permissions"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matrix); err != nil {
		t.Fatalf("Failed to decode matrix: %v", err)
	}
	resp.Body.Close()
	if len(matrix.Users) != 2 || len(matrix.Files) != 1 {
		t.Fatalf("Unexpected matrix shape: %d users, %d files", len(matrix.Users), len(matrix.Files))
	}

	var henryID uint64
	for _, u := range matrix.Users {
		if u.Username == "henry" {
			henryID = u.UserID
		}
	}
	if henryID == 0 {
		t.Fatal("henry missing from matrix")
	}
	fileID := matrix.Files[0].FileID

	// Form clients post ids as strings and checkboxes as "on"
	req = jsonRequest("POST", "/api/admin/permissions", map[string]interface{}{
		"user_id":    itoa(henryID),
		"file_id":    itoa(fileID),
		"permission": "on",
	})
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for string-typed update, got %d", resp.StatusCode)
	}

	// Batch update as an array
	req = jsonRequest("POST", "/api/admin/permissions", []map[string]interface{}{
		{"user_id": henryID, "file_id": fileID, "permission": false},
	})
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for batch update, got %d", resp.StatusCode)
	}

	// Unknown ids
	req = jsonRequest("POST", "/api/admin/permissions", map[string]interface{}{
		"user_id":    4242,
		"file_id":    fileID,
		"permission": true,
	})
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404 for unknown user, got %d", resp.StatusCode)
	}

	// Ids are required
	req = jsonRequest("POST", "/api/admin/permissions", map[string]interface{}{
		"permission": true,
	})
	req.AddCookie(adminCookie)
	resp, _ = app.Test(req)
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400 for missing ids, got %d", resp.StatusCode)
	}
}

func itoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}
