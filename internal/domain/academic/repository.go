package academic

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Хранилище учебных записей - внешний коллаборатор. Движок агрегации только
// читает из него. Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CohortFilter выбирает группу учеников для агрегации.
type CohortFilter struct {
	// ClassID - класс; пустая строка означает всю школу.
	ClassID string

	// IncludeInactive - включать отчисленных учеников.
	IncludeInactive bool
}

// WholeSchool возвращает true, если фильтр не ограничен классом.
func (f CohortFilter) WholeSchool() bool {
	return f.ClassID == ""
}

// RecordStore определяет запросы к хранилищу учебных записей.
// Отсутствие данных - не ошибка: методы возвращают пустой срез или nil.
type RecordStore interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Records
	// ─────────────────────────────────────────────────────────────────────────

	// GradeEntries возвращает оценки ученика по предмету за период.
	GradeEntries(ctx context.Context, studentID, subjectID, periodID string) ([]GradeEntry, error)

	// CohortGradeEntries возвращает все оценки группы учеников за период.
	// Пустой subjectID означает все предметы.
	CohortGradeEntries(ctx context.Context, cohort CohortFilter, subjectID, periodID string) ([]GradeEntry, error)

	// AttendanceTally возвращает пропуски ученика; nil, если записи нет.
	AttendanceTally(ctx context.Context, studentID, periodID string) (*AttendanceTally, error)

	// Achievements возвращает достижения, отсортированные по дате (новые первыми).
	Achievements(ctx context.Context, studentID, periodID string) ([]AchievementRecord, error)

	// AttitudeRecords возвращает оценки поведения за период.
	AttitudeRecords(ctx context.Context, studentID, periodID string) ([]AttitudeRecord, error)

	// ExtracurricularMarks возвращает оценки внеклассной деятельности.
	ExtracurricularMarks(ctx context.Context, studentID, periodID string) ([]ExtracurricularMark, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Reference data
	// ─────────────────────────────────────────────────────────────────────────

	// Students возвращает учеников группы, отсортированных по ID.
	Students(ctx context.Context, cohort CohortFilter, periodID string) ([]Student, error)

	// Student возвращает ученика или shared.ErrStudentNotFound.
	Student(ctx context.Context, id string) (*Student, error)

	// ClassExists проверяет существование класса.
	ClassExists(ctx context.Context, classID string) (bool, error)

	// Subject возвращает предмет или shared.ErrSubjectNotFound.
	Subject(ctx context.Context, id string) (*Subject, error)

	// Subjects возвращает все предметы, упорядоченные по коду.
	Subjects(ctx context.Context) ([]Subject, error)

	// GradeComponents возвращает компоненты оценивания за период.
	// Пустой subjectID означает все предметы.
	GradeComponents(ctx context.Context, subjectID, periodID string) ([]GradeComponent, error)

	// Period возвращает период или shared.ErrPeriodNotFound.
	Period(ctx context.Context, id string) (*Period, error)

	// ActivePeriod возвращает активный период или shared.ErrNoActivePeriod.
	ActivePeriod(ctx context.Context) (*Period, error)

	// Periods возвращает все периоды в хронологическом порядке.
	Periods(ctx context.Context) ([]Period, error)
}

// Class - учебный класс.
type Class struct {
	ID   string
	Name string
}

// Dataset - полный набор учебных записей, используется для переноса
// данных между хранилищами (например, загрузка демо-данных в PostgreSQL).
type Dataset struct {
	Classes         []Class
	Students        []Student
	Periods         []Period
	Subjects        []Subject
	Components      []GradeComponent
	Grades          []GradeEntry
	Attendance      []AttendanceTally
	Achievements    []AchievementRecord
	Attitudes       []AttitudeRecord
	Extracurricular []ExtracurricularMark
}
