package course

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"
)

type fakeRepository struct {
	mu       sync.Mutex
	courses  map[string]Course
	lessons  map[string][]Lesson
	students map[string][]Student
	err      error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		courses:  make(map[string]Course),
		lessons:  make(map[string][]Lesson),
		students: make(map[string][]Student),
	}
}

func (r *fakeRepository) Create(_ context.Context, c *Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.courses[c.ID] = *c
	return nil
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *fakeRepository) List(_ context.Context, p ListParams) ([]*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*Course
	for _, c := range r.courses {
		if p.InstructorID != "" && c.InstructorID != p.InstructorID {
			continue
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) Update(_ context.Context, c *Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	r.courses[c.ID] = *c
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return ErrNotFound
	}
	delete(r.courses, id)
	delete(r.lessons, id)
	delete(r.students, id)
	return nil
}

func (r *fakeRepository) AddLesson(_ context.Context, l *Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[l.CourseID]; !ok {
		return ErrNotFound
	}
	existing := r.lessons[l.CourseID]
	if l.Position <= 0 {
		l.Position = 1
		for _, other := range existing {
			l.Position = max(l.Position, other.Position+1)
		}
	}
	for _, other := range existing {
		if other.Position == l.Position {
			return ErrLessonPositionTaken
		}
	}
	l.CreatedAt = time.Now()
	r.lessons[l.CourseID] = append(existing, *l)
	return nil
}

func (r *fakeRepository) ListLessons(_ context.Context, courseID string) ([]*Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*Lesson, 0, len(r.lessons[courseID]))
	for _, l := range r.lessons[courseID] {
		out = append(out, &l)
	}
	slices.SortFunc(out, func(a, b *Lesson) int { return a.Position - b.Position })
	return out, nil
}

func (r *fakeRepository) Enroll(_ context.Context, courseID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students[courseID] {
		if s.UserID == userID {
			return nil
		}
	}
	r.students[courseID] = append(r.students[courseID], Student{UserID: userID, EnrolledAt: time.Now()})
	return nil
}

func (r *fakeRepository) ListStudents(_ context.Context, courseID string) ([]*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Student, 0, len(r.students[courseID]))
	for _, s := range r.students[courseID] {
		out = append(out, &s)
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	admin      = Actor{ID: "00000000-0000-7000-8000-000000000001", Role: roleAdmin}
	instructor = Actor{ID: "00000000-0000-7000-8000-000000000002", Role: roleInstructor}
	other      = Actor{ID: "00000000-0000-7000-8000-000000000003", Role: roleInstructor}
	student    = Actor{ID: "00000000-0000-7000-8000-000000000004", Role: "student"}
)
