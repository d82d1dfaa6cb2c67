package user

import (
	"context"

	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/validation"
)

// --- DTOs ---

type CreateUserRequest struct {
	Body struct {
		FirstName string `json:"firstName" validate:"required,min=2,max=255"`
		LastName  string `json:"lastName" validate:"required,min=2,max=255"`
		Email     string `json:"email" validate:"required,email,max=255"`
		Password  string `json:"password" validate:"required,min=8,maxbytes=72"`
		Role      Role   `json:"role,omitempty" validate:"omitempty,oneof=admin instructor student"`
	}
}

type ListUsersRequest struct {
	Limit  uint64 `query:"limit" maximum:"100"`
	Offset uint64 `query:"offset"`
	Role   string `query:"role" enum:"admin,instructor,student"`
}

type ListUsersResponse struct {
	Body struct {
		Users []UserDTO `json:"users"`
	}
}

type UserIDRequest struct {
	ID string `path:"id" format:"uuid"`
}

// --- Handlers ---

func (h *Handler) CreateUserHandler(ctx context.Context, input *CreateUserRequest) (*ProfileResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	u, err := h.service.CreateUser(ctx, CreateUserInput{
		RegisterInput: RegisterInput{
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
			Email:     input.Body.Email,
			Password:  input.Body.Password,
		},
		Role: input.Body.Role,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &ProfileResponse{Body: toUserDTO(u)}, nil
}

func (h *Handler) ListUsersHandler(ctx context.Context, input *ListUsersRequest) (*ListUsersResponse, error) {
	users, err := h.service.ListUsers(ctx, ListParams{
		Limit:  input.Limit,
		Offset: input.Offset,
		Role:   Role(input.Role),
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &ListUsersResponse{}
	resp.Body.Users = make([]UserDTO, 0, len(users))
	for _, u := range users {
		resp.Body.Users = append(resp.Body.Users, toUserDTO(u))
	}
	return resp, nil
}

func (h *Handler) GetUserHandler(ctx context.Context, input *UserIDRequest) (*ProfileResponse, error) {
	u, err := h.service.GetUser(ctx, input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &ProfileResponse{Body: toUserDTO(u)}, nil
}

func (h *Handler) DeleteUserHandler(ctx context.Context, input *UserIDRequest) (*struct{}, error) {
	if err := h.service.DeleteUser(ctx, input.ID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &struct{}{}, nil
}
