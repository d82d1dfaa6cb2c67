package user

import (
	"context"
)

// GetProfile retrieves the user profile for a given user ID.
func (s *service) GetProfile(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, s.lookupError(err)
	}
	return u, nil
}

// UpdateProfile changes the names that are set in input and returns the updated user.
func (s *service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, s.lookupError(err)
	}
	if input.FirstName != nil {
		u.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		u.LastName = *input.LastName
	}

	if err := s.repo.UpdateProfile(ctx, u.ID, u.FirstName, u.LastName); err != nil {
		return nil, s.lookupError(err)
	}
	s.logger.Info("profile updated", "user_id", u.ID)
	return u, nil
}

// CreateUser lets an administrator create an account with any role. The new
// user still has to verify their email.
func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*User, error) {
	role := input.Role
	if role == "" {
		role = RoleStudent
	}
	u, err := s.createLocalUser(ctx, input.RegisterInput, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created by admin", "user_id", u.ID, "role", u.Role)

	s.startEmailVerification(ctx, u)
	return u, nil
}

func (s *service) ListUsers(ctx context.Context, p ListParams) ([]*User, error) {
	users, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, s.lookupError(err)
	}
	return users, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.GetProfile(ctx, id)
}

func (s *service) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(err)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}
