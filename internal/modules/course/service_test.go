package course

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	return NewService(repo, discardLogger()), repo
}

func TestService_CreateCourseRoles(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCourse(ctx, instructor, CourseInput{Title: "Go 101", Description: "Basics"})
	require.NoError(t, err)
	assert.Equal(t, instructor.ID, c.InstructorID)
	assert.NotEmpty(t, c.ID)

	_, err = svc.CreateCourse(ctx, admin, CourseInput{Title: "Admin course"})
	assert.NoError(t, err)

	_, err = svc.CreateCourse(ctx, student, CourseInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_OwnershipChecks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, instructor, CourseInput{Title: "Go 101"})
	require.NoError(t, err)

	title := "Go 102"
	_, err = svc.UpdateCourse(ctx, other, c.ID, UpdateCourseInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.AddLesson(ctx, student, c.ID, LessonInput{Title: "Intro"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListStudents(ctx, other, c.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.DeleteCourse(ctx, other, c.ID), ErrForbidden)

	updated, err := svc.UpdateCourse(ctx, instructor, c.ID, UpdateCourseInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Go 102", updated.Title)

	_, err = svc.UpdateCourse(ctx, admin, c.ID, UpdateCourseInput{Title: &title})
	assert.NoError(t, err)

	require.NoError(t, svc.DeleteCourse(ctx, admin, c.ID))
	_, err = svc.GetCourse(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_LessonPositions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, instructor, CourseInput{Title: "Go 101"})
	require.NoError(t, err)

	first, err := svc.AddLesson(ctx, instructor, c.ID, LessonInput{Title: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)

	_, err = svc.AddLesson(ctx, instructor, c.ID, LessonInput{Title: "Appendix", Position: 10})
	require.NoError(t, err)

	next, err := svc.AddLesson(ctx, instructor, c.ID, LessonInput{Title: "After appendix"})
	require.NoError(t, err)
	assert.Equal(t, 11, next.Position)

	_, err = svc.AddLesson(ctx, instructor, c.ID, LessonInput{Title: "Clash", Position: 10})
	assert.ErrorIs(t, err, ErrLessonPositionTaken)

	detail, err := svc.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lessons, 3)
	assert.Equal(t, []int{1, 10, 11}, []int{detail.Lessons[0].Position, detail.Lessons[1].Position, detail.Lessons[2].Position})

	_, err = svc.ListLessons(ctx, "00000000-0000-7000-8000-00000000ffff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_EnrollIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, instructor, CourseInput{Title: "Go 101"})
	require.NoError(t, err)

	require.NoError(t, svc.Enroll(ctx, student, c.ID))
	require.NoError(t, svc.Enroll(ctx, student, c.ID))

	students, err := svc.ListStudents(ctx, instructor, c.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].UserID)

	assert.ErrorIs(t, svc.Enroll(ctx, student, "00000000-0000-7000-8000-00000000ffff"), ErrNotFound)
}

func TestService_RepositoryFailuresAreInternal(t *testing.T) {
	svc, repo := newTestService(t)
	repo.err = errors.New("connection reset")

	_, err := svc.ListCourses(context.Background(), ListParams{})
	assert.ErrorIs(t, err, ErrInternal)
	_, err = svc.GetCourse(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInternal)
}
