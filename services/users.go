package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/project-tracker/database"
	"github.com/CrowderSoup/project-tracker/logging"
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate is the body of an admin user update.
type UserUpdate struct {
	Name      database.Optional[string] `json:"name"`
	Email     database.Optional[string] `json:"email"`
	Role      database.Optional[string] `json:"role"`
	AvatarURL database.Optional[string] `json:"avatar_url"`
	Password  database.Optional[string] `json:"password"`
}

type UserService struct {
	store database.Store
	bus   Publisher
	auth  *AuthService

	// adminEmail registers with the admin role; everyone else starts as user
	adminEmail string
}

func NewUserService(store database.Store, bus Publisher, auth *AuthService, adminEmail string) *UserService {
	return &UserService{store: store, bus: bus, auth: auth, adminEmail: strings.ToLower(adminEmail)}
}

// Register creates a user and returns it with a fresh token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*database.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, "", validationErrorf("Name, email, and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, "", validationErrorf("Invalid email address")
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	role := database.RoleUser
	if s.adminEmail != "" && in.Email == s.adminEmail {
		role = database.RoleAdmin
	}

	id, err := s.store.CreateUser(ctx, &database.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, database.ErrDuplicateEmail) {
		return nil, "", validationErrorf("Email already registered")
	}
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, "", err
	}
	token, err := s.auth.CreateJWT(user)
	if err != nil {
		return nil, "", err
	}

	logging.Logger.WithFields(logrus.Fields{"user_id": id, "role": role}).Info("User registered")
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*database.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", validationErrorf("Email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, "", &AuthenticationError{Message: "Invalid email or password"}
	}
	if err != nil {
		return nil, "", err
	}
	if !s.auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", &AuthenticationError{Message: "Invalid email or password"}
	}

	token, err := s.auth.CreateJWT(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) List(ctx context.Context) ([]database.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id int64) (*database.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &NotFoundError{Resource: "User"}
	}
	return u, err
}

// Update is admin only.
func (s *UserService) Update(ctx context.Context, actor Actor, id int64, in UserUpdate) (*database.User, error) {
	if !actor.IsAdmin() {
		return nil, &AuthorizationError{Message: "Admin access required"}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	patch, err := s.userPatch(in)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, validationErrorf("No fields to update")
	}

	n, err := s.store.UpdateUser(ctx, id, patch)
	if errors.Is(err, database.ErrDuplicateEmail) {
		return nil, validationErrorf("Email already in use")
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &NotFoundError{Resource: "User"}
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	logging.Logger.WithFields(logrus.Fields{"user_id": id, "actor": actor.ID}).Info("User updated")
	s.bus.Publish(EventUserUpdated, user)
	return user, nil
}

// Delete is admin only and removes everything the user owns.
func (s *UserService) Delete(ctx context.Context, actor Actor, id int64) error {
	if !actor.IsAdmin() {
		return &AuthorizationError{Message: "Admin access required"}
	}
	if actor.ID == id {
		return validationErrorf("Cannot delete your own account")
	}

	n, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{Resource: "User"}
	}

	logging.Logger.WithFields(logrus.Fields{"user_id": id, "actor": actor.ID}).Info("User deleted")
	s.bus.Publish(EventUserDeleted, map[string]int64{"id": id})
	return nil
}

func (s *UserService) userPatch(in UserUpdate) (database.UserPatch, error) {
	if err := checkRequired("name", in.Name); err != nil {
		return database.UserPatch{}, err
	}
	if err := checkRequired("email", in.Email); err != nil {
		return database.UserPatch{}, err
	}
	if in.Email.Set {
		in.Email.Value = strings.ToLower(strings.TrimSpace(in.Email.Value))
		if !strings.Contains(in.Email.Value, "@") {
			return database.UserPatch{}, validationErrorf("Invalid email address")
		}
	}
	if in.Role.Set {
		if in.Role.Null {
			return database.UserPatch{}, validationErrorf("role cannot be empty")
		}
		if err := checkEnum("role", in.Role.Value, roles); err != nil {
			return database.UserPatch{}, err
		}
	}

	patch := database.UserPatch{
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		AvatarURL: in.AvatarURL,
	}
	if in.Password.Set {
		if in.Password.Null || in.Password.Value == "" {
			return database.UserPatch{}, validationErrorf("password cannot be empty")
		}
		hash, err := s.auth.HashPassword(in.Password.Value)
		if err != nil {
			return database.UserPatch{}, err
		}
		patch.PasswordHash = database.Some(hash)
	}
	return patch, nil
}
