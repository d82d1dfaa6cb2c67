package course

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/delordemm1/lms-api/internal/contextx"
	"github.com/delordemm1/lms-api/internal/httpx"
	"github.com/delordemm1/lms-api/internal/middleware"
	"github.com/delordemm1/lms-api/internal/session"
	"github.com/delordemm1/lms-api/internal/validation"
)

// Handler holds the dependencies for the course module's HTTP handlers.
type Handler struct {
	service  Service
	logger   *slog.Logger
	sessions session.Minter
}

func NewHandler(service Service, logger *slog.Logger, sessions session.Minter) *Handler {
	return &Handler{service: service, logger: logger, sessions: sessions}
}

var bearer = []map[string][]string{{"bearer": {}}}

// RegisterRoutes sets up the routing for the course module. Every route needs an access token.
func (h *Handler) RegisterRoutes(api huma.API) {
	authn := huma.Middlewares{middleware.Authenticate(h.sessions, h.logger)}
	teachers := huma.Middlewares{authn[0], middleware.RequireRole(roleInstructor, roleAdmin)}

	huma.Register(api, huma.Operation{
		OperationID: "list-courses",
		Method:      http.MethodGet,
		Path:        "/courses",
		Summary:     "List courses",
		Tags:        []string{"courses"},
		Security:    bearer,
		Middlewares: authn,
	}, h.ListCoursesHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "create-course",
		Method:        http.MethodPost,
		Path:          "/courses",
		Summary:       "Create a course (instructor or admin)",
		Tags:          []string{"courses"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   teachers,
	}, h.CreateCourseHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-course",
		Method:      http.MethodGet,
		Path:        "/courses/{id}",
		Summary:     "Get a course with its lessons",
		Tags:        []string{"courses"},
		Security:    bearer,
		Middlewares: authn,
	}, h.GetCourseHandler)

	huma.Register(api, huma.Operation{
		OperationID: "update-course",
		Method:      http.MethodPatch,
		Path:        "/courses/{id}",
		Summary:     "Update a course (owner or admin)",
		Tags:        []string{"courses"},
		Security:    bearer,
		Middlewares: authn,
	}, h.UpdateCourseHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-course",
		Method:        http.MethodDelete,
		Path:          "/courses/{id}",
		Summary:       "Delete a course (owner or admin)",
		Tags:          []string{"courses"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   authn,
	}, h.DeleteCourseHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "add-lesson",
		Method:        http.MethodPost,
		Path:          "/courses/{id}/lessons",
		Summary:       "Add a lesson (owner or admin)",
		Tags:          []string{"lessons"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   authn,
	}, h.AddLessonHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-lessons",
		Method:      http.MethodGet,
		Path:        "/courses/{id}/lessons",
		Summary:     "List the lessons of a course",
		Tags:        []string{"lessons"},
		Security:    bearer,
		Middlewares: authn,
	}, h.ListLessonsHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "enroll",
		Method:        http.MethodPost,
		Path:          "/courses/{id}/enroll",
		Summary:       "Enroll the current user in a course",
		Tags:          []string{"enrollment"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   authn,
	}, h.EnrollHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-students",
		Method:      http.MethodGet,
		Path:        "/courses/{id}/students",
		Summary:     "List enrolled students (owner or admin)",
		Tags:        []string{"enrollment"},
		Security:    bearer,
		Middlewares: authn,
	}, h.ListStudentsHandler)
}

// --- DTOs ---

type CourseDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstructorID string    `json:"instructorId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type LessonDTO struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

type StudentDTO struct {
	UserID     string    `json:"userId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

func toCourseDTO(c *Course) CourseDTO {
	return CourseDTO{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		InstructorID: c.InstructorID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toLessonDTOs(lessons []*Lesson) []LessonDTO {
	out := make([]LessonDTO, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, LessonDTO{
			ID:        l.ID,
			CourseID:  l.CourseID,
			Title:     l.Title,
			Content:   l.Content,
			Position:  l.Position,
			CreatedAt: l.CreatedAt,
		})
	}
	return out
}

type CourseIDRequest struct {
	ID string `path:"id" format:"uuid"`
}

type CourseResponse struct {
	Body CourseDTO
}

type CourseDetailResponse struct {
	Body struct {
		CourseDTO
		Lessons []LessonDTO `json:"lessons"`
	}
}

type ListCoursesRequest struct {
	Limit        uint64 `query:"limit" maximum:"100"`
	Offset       uint64 `query:"offset"`
	InstructorID string `query:"instructorId"`
}

type ListCoursesResponse struct {
	Body struct {
		Courses []CourseDTO `json:"courses"`
	}
}

type CreateCourseRequest struct {
	Body struct {
		Title       string `json:"title" validate:"required,min=3,max=255"`
		Description string `json:"description,omitempty" validate:"max=5000"`
	}
}

type UpdateCourseRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		Title       *string `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
		Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	}
}

type AddLessonRequest struct {
	ID   string `path:"id" format:"uuid"`
	Body struct {
		Title    string `json:"title" validate:"required,min=1,max=255"`
		Content  string `json:"content,omitempty"`
		Position int    `json:"position,omitempty" validate:"gte=0"`
	}
}

type LessonResponse struct {
	Body LessonDTO
}

type ListLessonsResponse struct {
	Body struct {
		Lessons []LessonDTO `json:"lessons"`
	}
}

type ListStudentsResponse struct {
	Body struct {
		Students []StudentDTO `json:"students"`
	}
}

// actorFrom reads the caller set by middleware.Authenticate.
func actorFrom(ctx context.Context) Actor {
	id, _ := contextx.UserID(ctx)
	return Actor{ID: id, Role: contextx.Role(ctx)}
}

// --- Handlers ---

func (h *Handler) ListCoursesHandler(ctx context.Context, input *ListCoursesRequest) (*ListCoursesResponse, error) {
	courses, err := h.service.ListCourses(ctx, ListParams{
		Limit:        input.Limit,
		Offset:       input.Offset,
		InstructorID: input.InstructorID,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &ListCoursesResponse{}
	resp.Body.Courses = make([]CourseDTO, 0, len(courses))
	for _, c := range courses {
		resp.Body.Courses = append(resp.Body.Courses, toCourseDTO(c))
	}
	return resp, nil
}

func (h *Handler) CreateCourseHandler(ctx context.Context, input *CreateCourseRequest) (*CourseResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	c, err := h.service.CreateCourse(ctx, actorFrom(ctx), CourseInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &CourseResponse{Body: toCourseDTO(c)}, nil
}

func (h *Handler) GetCourseHandler(ctx context.Context, input *CourseIDRequest) (*CourseDetailResponse, error) {
	detail, err := h.service.GetCourse(ctx, input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &CourseDetailResponse{}
	resp.Body.CourseDTO = toCourseDTO(&detail.Course)
	resp.Body.Lessons = toLessonDTOs(detail.Lessons)
	return resp, nil
}

func (h *Handler) UpdateCourseHandler(ctx context.Context, input *UpdateCourseRequest) (*CourseResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	c, err := h.service.UpdateCourse(ctx, actorFrom(ctx), input.ID, UpdateCourseInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &CourseResponse{Body: toCourseDTO(c)}, nil
}

func (h *Handler) DeleteCourseHandler(ctx context.Context, input *CourseIDRequest) (*struct{}, error) {
	if err := h.service.DeleteCourse(ctx, actorFrom(ctx), input.ID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &struct{}{}, nil
}

func (h *Handler) AddLessonHandler(ctx context.Context, input *AddLessonRequest) (*LessonResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	l, err := h.service.AddLesson(ctx, actorFrom(ctx), input.ID, LessonInput{
		Title:    input.Body.Title,
		Content:  input.Body.Content,
		Position: input.Body.Position,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &LessonResponse{Body: toLessonDTOs([]*Lesson{l})[0]}, nil
}

func (h *Handler) ListLessonsHandler(ctx context.Context, input *CourseIDRequest) (*ListLessonsResponse, error) {
	lessons, err := h.service.ListLessons(ctx, input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp := &ListLessonsResponse{}
	resp.Body.Lessons = toLessonDTOs(lessons)
	return resp, nil
}

func (h *Handler) EnrollHandler(ctx context.Context, input *CourseIDRequest) (*struct{}, error) {
	if err := h.service.Enroll(ctx, actorFrom(ctx), input.ID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &struct{}{}, nil
}

func (h *Handler) ListStudentsHandler(ctx context.Context, input *CourseIDRequest) (*ListStudentsResponse, error) {
	students, err := h.service.ListStudents(ctx, actorFrom(ctx), input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &ListStudentsResponse{}
	resp.Body.Students = make([]StudentDTO, 0, len(students))
	for _, st := range students {
		resp.Body.Students = append(resp.Body.Students, StudentDTO{
			UserID:     st.UserID,
			FirstName:  st.FirstName,
			LastName:   st.LastName,
			Email:      st.Email,
			EnrolledAt: st.EnrolledAt,
		})
	}
	return resp, nil
}
