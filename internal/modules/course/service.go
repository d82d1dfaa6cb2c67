package course

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	roleAdmin      = "admin"
	roleInstructor = "instructor"
)

// Service defines the business logic of the course module. Write operations on
// an existing course are limited to its instructor and administrators.
type Service interface {
	CreateCourse(ctx context.Context, actor Actor, input CourseInput) (*Course, error)
	ListCourses(ctx context.Context, p ListParams) ([]*Course, error)
	GetCourse(ctx context.Context, id string) (*CourseDetail, error)
	UpdateCourse(ctx context.Context, actor Actor, id string, input UpdateCourseInput) (*Course, error)
	DeleteCourse(ctx context.Context, actor Actor, id string) error

	AddLesson(ctx context.Context, actor Actor, courseID string, input LessonInput) (*Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]*Lesson, error)

	Enroll(ctx context.Context, actor Actor, courseID string) error
	ListStudents(ctx context.Context, actor Actor, courseID string) ([]*Student, error)
}

type CourseInput struct {
	Title       string
	Description string
}

type UpdateCourseInput struct {
	Title       *string
	Description *string
}

// LessonInput with a zero Position is appended after the last lesson.
type LessonInput struct {
	Title    string
	Content  string
	Position int
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, logger: logger}
}

func (s *service) CreateCourse(ctx context.Context, actor Actor, input CourseInput) (*Course, error) {
	if actor.Role != roleInstructor && actor.Role != roleAdmin {
		return nil, ErrForbidden
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	c := &Course{
		ID:           id.String(),
		Title:        input.Title,
		Description:  input.Description,
		InstructorID: actor.ID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, s.repoError(err)
	}
	s.logger.Info("course created", "course_id", c.ID, "instructor_id", c.InstructorID)
	return c, nil
}

func (s *service) ListCourses(ctx context.Context, p ListParams) ([]*Course, error) {
	courses, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, s.repoError(err)
	}
	return courses, nil
}

// GetCourse loads the course and its lessons concurrently.
func (s *service) GetCourse(ctx context.Context, id string) (*CourseDetail, error) {
	var (
		c       *Course
		lessons []*Lesson
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c, err = s.repo.FindByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		lessons, err = s.repo.ListLessons(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.repoError(err)
	}
	return &CourseDetail{Course: *c, Lessons: lessons}, nil
}

func (s *service) UpdateCourse(ctx context.Context, actor Actor, id string, input UpdateCourseInput) (*Course, error) {
	c, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		c.Title = *input.Title
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, s.repoError(err)
	}
	s.logger.Info("course updated", "course_id", c.ID, "user_id", actor.ID)
	return c, nil
}

func (s *service) DeleteCourse(ctx context.Context, actor Actor, id string) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.repoError(err)
	}
	s.logger.Info("course deleted", "course_id", id, "user_id", actor.ID)
	return nil
}

func (s *service) AddLesson(ctx context.Context, actor Actor, courseID string, input LessonInput) (*Lesson, error) {
	if _, err := s.manageable(ctx, actor, courseID); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	l := &Lesson{
		ID:       id.String(),
		CourseID: courseID,
		Title:    input.Title,
		Content:  input.Content,
		Position: input.Position,
	}
	if err := s.repo.AddLesson(ctx, l); err != nil {
		return nil, s.repoError(err)
	}
	s.logger.Info("lesson added", "course_id", courseID, "lesson_id", l.ID, "position", l.Position)
	return l, nil
}

func (s *service) ListLessons(ctx context.Context, courseID string) ([]*Lesson, error) {
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		return nil, s.repoError(err)
	}
	lessons, err := s.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, s.repoError(err)
	}
	return lessons, nil
}

func (s *service) Enroll(ctx context.Context, actor Actor, courseID string) error {
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		return s.repoError(err)
	}
	if err := s.repo.Enroll(ctx, courseID, actor.ID); err != nil {
		return s.repoError(err)
	}
	s.logger.Info("user enrolled", "course_id", courseID, "user_id", actor.ID)
	return nil
}

func (s *service) ListStudents(ctx context.Context, actor Actor, courseID string) ([]*Student, error) {
	if _, err := s.manageable(ctx, actor, courseID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListStudents(ctx, courseID)
	if err != nil {
		return nil, s.repoError(err)
	}
	return students, nil
}

// manageable loads the course and checks that actor owns it or is an admin.
func (s *service) manageable(ctx context.Context, actor Actor, id string) (*Course, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.repoError(err)
	}
	if actor.Role != roleAdmin && c.InstructorID != actor.ID {
		return nil, ErrForbidden
	}
	return c, nil
}

// repoError passes course domain errors through and hides everything else.
func (s *service) repoError(err error) error {
	var de *DomainError
	if errors.As(err, &de) && !errors.Is(de, ErrInternal) {
		return de
	}
	s.logger.Error("course repository error", "error", err)
	return ErrInternal.WithCause(err)
}
