package course

import "time"

// Course is owned by the instructor who created it.
type Course struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	InstructorID string    `db:"instructor_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var courseColumns = []string{"id", "title", "description", "instructor_id", "created_at", "updated_at"}

// Lesson positions are unique within a course and start at 1.
type Lesson struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

var lessonColumns = []string{"id", "course_id", "title", "content", "position", "created_at", "updated_at"}

// Student is an enrolled user as seen from a course.
type Student struct {
	UserID     string    `db:"id"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	Email      string    `db:"email"`
	EnrolledAt time.Time `db:"enrolled_at"`
}

// CourseDetail is a course together with its ordered lessons.
type CourseDetail struct {
	Course
	Lessons []*Lesson
}

// Actor is the authenticated caller a course operation runs on behalf of.
type Actor struct {
	ID   string
	Role string
}
