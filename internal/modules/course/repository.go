package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/delordemm1/lms-api/internal/database"
)

type ListParams struct {
	Limit        uint64
	Offset       uint64
	InstructorID string
}

// Repository defines the database operations of the course module.
type Repository interface {
	Create(ctx context.Context, c *Course) error
	FindByID(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context, p ListParams) ([]*Course, error)
	Update(ctx context.Context, c *Course) error
	Delete(ctx context.Context, id string) error

	// AddLesson stores l. A zero Position is replaced by the next free one.
	AddLesson(ctx context.Context, l *Lesson) error
	ListLessons(ctx context.Context, courseID string) ([]*Lesson, error)

	// Enroll is idempotent.
	Enroll(ctx context.Context, courseID, userID string) error
	ListStudents(ctx context.Context, courseID string) ([]*Student, error)
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) Create(ctx context.Context, c *Course) error {
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now

	query, args, err := r.psql.Insert("courses").
		Columns(courseColumns...).
		Values(c.ID, c.Title, c.Description, c.InstructorID, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Course, error) {
	query, args, err := r.psql.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var c Course
	if err := pgxscan.Get(ctx, r.db, &c, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, p ListParams) ([]*Course, error) {
	limit := p.Limit
	if limit == 0 || limit > 100 {
		limit = 50
	}
	q := r.psql.Select(courseColumns...).
		From("courses").
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(p.Offset)
	if p.InstructorID != "" {
		q = q.Where(squirrel.Eq{"instructor_id": p.InstructorID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var courses []*Course
	if err := pgxscan.Select(ctx, r.db, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (r *repository) Update(ctx context.Context, c *Course) error {
	c.UpdatedAt = time.Now()
	query, args, err := r.psql.Update("courses").
		SetMap(map[string]any{
			"title":       c.Title,
			"description": c.Description,
			"updated_at":  c.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, query, args)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, query, args)
}

// execOne runs a statement that must affect exactly one course.
func (r *repository) execOne(ctx context.Context, query string, args []any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLesson locks the course row so concurrent inserts cannot pick the same position.
func (r *repository) AddLesson(ctx context.Context, l *Lesson) error {
	now := time.Now()
	l.CreatedAt, l.UpdatedAt = now, now

	lock, lockArgs, err := r.psql.Select("id").
		From("courses").
		Where(squirrel.Eq{"id": l.CourseID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return err
	}
	next, nextArgs, err := r.psql.Select("COALESCE(MAX(position), 0) + 1").
		From("lessons").
		Where(squirrel.Eq{"course_id": l.CourseID}).
		ToSql()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, lock, lockArgs...).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound.WithCause(err)
			}
			return fmt.Errorf("lock course: %w", err)
		}
		if l.Position <= 0 {
			if err := tx.QueryRow(ctx, next, nextArgs...).Scan(&l.Position); err != nil {
				return fmt.Errorf("next lesson position: %w", err)
			}
		}

		ins, insArgs, err := r.psql.Insert("lessons").
			Columns(lessonColumns...).
			Values(l.ID, l.CourseID, l.Title, l.Content, l.Position, l.CreatedAt, l.UpdatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, insArgs...); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrLessonPositionTaken.WithCause(err)
			}
			return fmt.Errorf("insert lesson: %w", err)
		}
		return nil
	})
}

func (r *repository) ListLessons(ctx context.Context, courseID string) ([]*Lesson, error) {
	query, args, err := r.psql.Select(lessonColumns...).
		From("lessons").
		Where(squirrel.Eq{"course_id": courseID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}

	var lessons []*Lesson
	if err := pgxscan.Select(ctx, r.db, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

func (r *repository) Enroll(ctx context.Context, courseID, userID string) error {
	query, args, err := r.psql.Insert("course_students").
		Columns("course_id", "user_id", "enrolled_at").
		Values(courseID, userID, time.Now()).
		Suffix("ON CONFLICT (course_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	return nil
}

func (r *repository) ListStudents(ctx context.Context, courseID string) ([]*Student, error) {
	query, args, err := r.psql.Select("u.id", "u.first_name", "u.last_name", "u.email", "cs.enrolled_at").
		From("course_students cs").
		Join("users u ON u.id = cs.user_id").
		Where(squirrel.Eq{"cs.course_id": courseID}).
		OrderBy("cs.enrolled_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var students []*Student
	if err := pgxscan.Select(ctx, r.db, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
