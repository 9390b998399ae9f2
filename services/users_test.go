package services

import (
	"context"
	"testing"

	"github.com/CrowderSoup/project-tracker/database"
)

func newUserEnv(t *testing.T) (*UserService, *database.MemoryStore, *recordingPublisher) {
	t.Helper()
	store := database.NewMemoryStore()
	bus := &recordingPublisher{}
	return NewUserService(store, bus, newTestAuth(), "boss@example.com"), store, bus
}

func TestRegisterAndLogin(t *testing.T) {
	users, _, _ := newUserEnv(t)
	ctx := context.Background()

	user, token, err := users.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if token == "" || user.Email != "ada@example.com" || user.Role != database.RoleUser {
		t.Errorf("Unexpected registration: %+v %q", user, token)
	}

	_, _, err = users.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "x"})
	assertErrorType[*ValidationError](t, err)

	_, _, err = users.Register(ctx, RegisterInput{Name: "NoPass", Email: "np@example.com"})
	assertErrorType[*ValidationError](t, err)

	if _, _, err := users.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Errorf("Expected login to succeed, got %v", err)
	}
	_, _, err = users.Login(ctx, "ada@example.com", "wrong")
	assertErrorType[*AuthenticationError](t, err)
	_, _, err = users.Login(ctx, "nobody@example.com", "secret")
	assertErrorType[*AuthenticationError](t, err)
}

func TestRegisterBootstrapsAdmin(t *testing.T) {
	users, _, _ := newUserEnv(t)
	user, _, err := users.Register(context.Background(), RegisterInput{Name: "Boss", Email: "boss@example.com", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != database.RoleAdmin {
		t.Errorf("Expected admin role, got %q", user.Role)
	}
}

func TestUserUpdateIsAdminOnly(t *testing.T) {
	users, store, bus := newUserEnv(t)
	ctx := context.Background()
	adminID := mustCreateUser(t, store, "Admin", "admin@example.com", database.RoleAdmin)
	userID := mustCreateUser(t, store, "User", "user@example.com", database.RoleUser)
	admin := Actor{ID: adminID, Role: database.RoleAdmin}

	_, err := users.Update(ctx, Actor{ID: userID, Role: database.RoleUser}, userID, UserUpdate{Name: database.Some("Me")})
	assertErrorType[*AuthorizationError](t, err)

	_, err = users.Update(ctx, admin, 999, UserUpdate{Name: database.Some("x")})
	assertErrorType[*NotFoundError](t, err)

	_, err = users.Update(ctx, admin, userID, UserUpdate{})
	assertErrorType[*ValidationError](t, err)

	_, err = users.Update(ctx, admin, userID, UserUpdate{Email: database.Some("admin@example.com")})
	assertErrorType[*ValidationError](t, err)

	_, err = users.Update(ctx, admin, userID, UserUpdate{Role: database.Some("root")})
	assertErrorType[*ValidationError](t, err)

	updated, err := users.Update(ctx, admin, userID, UserUpdate{Role: database.Some(database.RoleAdmin), Password: database.Some("new-pass")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Role != database.RoleAdmin {
		t.Errorf("Expected role admin, got %q", updated.Role)
	}
	if _, _, err := users.Login(ctx, "user@example.com", "new-pass"); err != nil {
		t.Errorf("Expected new password to work, got %v", err)
	}
	if bus.count("", EventUserUpdated) != 1 {
		t.Errorf("Expected one user:updated event, got %d", bus.count("", EventUserUpdated))
	}
}

func TestUserDelete(t *testing.T) {
	users, store, bus := newUserEnv(t)
	ctx := context.Background()
	adminID := mustCreateUser(t, store, "Admin", "admin@example.com", database.RoleAdmin)
	userID := mustCreateUser(t, store, "User", "user@example.com", database.RoleUser)
	admin := Actor{ID: adminID, Role: database.RoleAdmin}

	projectID, _ := store.CreateProject(ctx, &database.Project{Name: "P", StartDate: "2025-01-01", EndDate: "2025-02-01", OwnerID: userID, Status: database.StatusOpen})

	err := users.Delete(ctx, Actor{ID: userID, Role: database.RoleUser}, adminID)
	assertErrorType[*AuthorizationError](t, err)

	err = users.Delete(ctx, admin, adminID)
	assertErrorType[*ValidationError](t, err)

	if err := users.Delete(ctx, admin, userID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetProject(ctx, projectID); err != database.ErrNotFound {
		t.Errorf("Expected owned project removed, got %v", err)
	}

	err = users.Delete(ctx, admin, userID)
	assertErrorType[*NotFoundError](t, err)

	if bus.count("", EventUserDeleted) != 1 {
		t.Errorf("Expected one user:deleted event")
	}
}
