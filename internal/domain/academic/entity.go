// Package academic содержит доменную модель учебных записей школы:
// ученики, учебные периоды, предметы, оценки, посещаемость, достижения.
// Здесь нет внешних зависимостей - только чистая бизнес-логика.
package academic

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// StudentStatus определяет статус зачисления ученика.
type StudentStatus string

const (
	// StudentActive - ученик учится.
	StudentActive StudentStatus = "active"
	// StudentInactive - ученик отчислен или переведён; записи сохраняются.
	StudentInactive StudentStatus = "inactive"
)

// IsValid проверяет корректность статуса.
func (s StudentStatus) IsValid() bool {
	return s == StudentActive || s == StudentInactive
}

// Student - ученик школы.
// Никогда не удаляется физически, пока на него ссылаются исторические записи.
type Student struct {
	ID        string
	NIS       string // школьный номер ученика
	Name      string
	ClassID   string
	ClassName string
	Status    StudentStatus
}

// IsActive возвращает true, если ученик учится.
func (s *Student) IsActive() bool {
	return s.Status == StudentActive
}

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD
// ══════════════════════════════════════════════════════════════════════════════

// Semester - полугодие внутри учебного года.
type Semester string

const (
	// SemesterOdd - первое полугодие (ganjil).
	SemesterOdd Semester = "ganjil"
	// SemesterEven - второе полугодие (genap).
	SemesterEven Semester = "genap"
)

// order возвращает порядковый номер полугодия внутри года.
func (s Semester) order() int {
	if s == SemesterEven {
		return 2
	}
	return 1
}

// Period - пара (учебный год, полугодие).
// Инвариант: не более одного активного периода на учебный год.
type Period struct {
	ID         string
	SchoolYear string // например "2023/2024"
	Semester   Semester
	Active     bool
	StartsOn   time.Time
}

// Before сообщает, идёт ли период p хронологически раньше other.
func (p Period) Before(other Period) bool {
	if p.SchoolYear != other.SchoolYear {
		return p.SchoolYear < other.SchoolYear
	}
	return p.Semester.order() < other.Semester.order()
}

// Label возвращает человекочитаемое название периода.
func (p Period) Label() string {
	return fmt.Sprintf("%s %s", p.SchoolYear, p.Semester)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT & COMPONENTS
// ══════════════════════════════════════════════════════════════════════════════

// Subject - учебный предмет с порогом освоения (KKM).
type Subject struct {
	ID   string
	Code string
	Name string
	KKM  float64
}

// ComponentKind - явный тип компонента оценивания.
type ComponentKind string

const (
	// KindUnspecified - тип не задан, определяется по названию.
	KindUnspecified ComponentKind = ""
	// KindKnowledge - знания (pengetahuan).
	KindKnowledge ComponentKind = "knowledge"
	// KindSkill - навыки (keterampilan).
	KindSkill ComponentKind = "skill"
	// KindOther - не относится ни к знаниям, ни к навыкам.
	KindOther ComponentKind = "other"
)

// IsValid проверяет корректность типа.
func (k ComponentKind) IsValid() bool {
	switch k {
	case KindUnspecified, KindKnowledge, KindSkill, KindOther:
		return true
	default:
		return false
	}
}

// GradeComponent - подкатегория оценивания по предмету в периоде
// (например "ujian tulis" или "project praktik").
type GradeComponent struct {
	ID        string
	SubjectID string
	PeriodID  string
	Name      string
	Kind      ComponentKind
}

// EffectiveKind возвращает явный тип компонента, а для старых записей
// без типа - тип, выведенный из названия.
func (c GradeComponent) EffectiveKind() ComponentKind {
	if c.Kind != KindUnspecified {
		return c.Kind
	}
	return ClassifyComponent(c.Name)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// GradeEntry - одна оценка (0-100) ученика по компоненту.
// На один компонент допускается несколько оценок; все входят в среднее.
type GradeEntry struct {
	ID          string
	StudentID   string
	SubjectID   string
	PeriodID    string
	ComponentID string
	Score       float64
	RecordedAt  time.Time
}

// AttendanceTally - пропуски ученика за период.
// Количество присутствий не хранится.
type AttendanceTally struct {
	StudentID  string
	PeriodID   string
	Sick       int // sakit
	Permission int // izin
	Unexcused  int // alpa
}

// TotalAbsences возвращает суммарное количество пропусков.
func (t AttendanceTally) TotalAbsences() int {
	return t.Sick + t.Permission + t.Unexcused
}

// AchievementLevel - уровень достижения.
type AchievementLevel string

const (
	LevelSchool        AchievementLevel = "school"
	LevelDistrict      AchievementLevel = "district"
	LevelProvince      AchievementLevel = "province"
	LevelNational      AchievementLevel = "national"
	LevelInternational AchievementLevel = "international"
)

// AchievementRecord - награда ученика.
type AchievementRecord struct {
	ID         string
	StudentID  string
	PeriodID   string
	Title      string
	Level      AchievementLevel
	Category   string
	Rank       string
	AchievedOn time.Time
}

// AttitudeAspect - аспект оценки поведения.
type AttitudeAspect string

const (
	AspectSocial    AttitudeAspect = "social"
	AspectSpiritual AttitudeAspect = "spiritual"
)

// AttitudeRecord - качественная оценка поведения (sikap) за период.
type AttitudeRecord struct {
	ID          string
	StudentID   string
	PeriodID    string
	Aspect      AttitudeAspect
	Rating      string
	Description string
}

// ExtracurricularMark - оценка за внеклассную деятельность (ekskul).
type ExtracurricularMark struct {
	ID        string
	StudentID string
	PeriodID  string
	Activity  string
	Mark      string
	Notes     string
}
