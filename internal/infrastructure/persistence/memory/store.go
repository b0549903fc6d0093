// Package memory implements an in-memory academic.RecordStore.
// It backs tests, the CLI demo dataset and development runs without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// Store is a mutex-guarded in-memory record store.
type Store struct {
	mu sync.RWMutex

	classes         map[string]string // id -> name
	students        map[string]academic.Student
	subjects        map[string]academic.Subject
	periods         map[string]academic.Period
	components      []academic.GradeComponent
	grades          []academic.GradeEntry
	attendance      map[string]academic.AttendanceTally // studentID|periodID
	achievements    []academic.AchievementRecord
	attitudes       []academic.AttitudeRecord
	extracurricular []academic.ExtracurricularMark
}

var _ academic.RecordStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		classes:    make(map[string]string),
		students:   make(map[string]academic.Student),
		subjects:   make(map[string]academic.Subject),
		periods:    make(map[string]academic.Period),
		attendance: make(map[string]academic.AttendanceTally),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// AddClass registers a class.
func (s *Store) AddClass(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[id] = name
}

// AddStudent registers a student. The class name is filled from AddClass.
func (s *Store) AddStudent(st academic.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Status == "" {
		st.Status = academic.StudentActive
	}
	if st.ClassName == "" {
		st.ClassName = s.classes[st.ClassID]
	}
	s.students[st.ID] = st
}

// AddSubject registers a subject.
func (s *Store) AddSubject(sub academic.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub.ID] = sub
}

// AddPeriod registers a period. An active period deactivates the other
// periods of the same school year.
func (s *Store) AddPeriod(p academic.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Active {
		for id, other := range s.periods {
			if other.SchoolYear == p.SchoolYear && other.Active {
				other.Active = false
				s.periods[id] = other
			}
		}
	}
	s.periods[p.ID] = p
}

// AddComponent registers a grade component.
func (s *Store) AddComponent(c academic.GradeComponent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, c)
}

// AddGrade appends a grade entry.
func (s *Store) AddGrade(e academic.GradeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grades = append(s.grades, e)
}

// SetAttendance stores the tally for (student, period), replacing any previous one.
func (s *Store) SetAttendance(t academic.AttendanceTally) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[attendanceKey(t.StudentID, t.PeriodID)] = t
}

// AddAchievement appends an achievement record.
func (s *Store) AddAchievement(a academic.AchievementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.achievements = append(s.achievements, a)
}

// AddAttitude appends an attitude record.
func (s *Store) AddAttitude(a academic.AttitudeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attitudes = append(s.attitudes, a)
}

// AddExtracurricular appends an extracurricular mark.
func (s *Store) AddExtracurricular(m academic.ExtracurricularMark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracurricular = append(s.extracurricular, m)
}

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

// GradeEntries returns the entries of one student for one subject and period.
func (s *Store) GradeEntries(_ context.Context, studentID, subjectID, periodID string) ([]academic.GradeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.GradeEntry, 0)
	for _, e := range s.grades {
		if e.StudentID == studentID && e.SubjectID == subjectID && e.PeriodID == periodID {
			result = append(result, e)
		}
	}
	return result, nil
}

// CohortGradeEntries returns the entries of every student in the cohort.
func (s *Store) CohortGradeEntries(_ context.Context, cohort academic.CohortFilter, subjectID, periodID string) ([]academic.GradeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.GradeEntry, 0)
	for _, e := range s.grades {
		if e.PeriodID != periodID {
			continue
		}
		if subjectID != "" && e.SubjectID != subjectID {
			continue
		}
		st, ok := s.students[e.StudentID]
		if !ok || !inCohort(st, cohort) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// AttendanceTally returns the tally or nil when none is recorded.
func (s *Store) AttendanceTally(_ context.Context, studentID, periodID string) (*academic.AttendanceTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.attendance[attendanceKey(studentID, periodID)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// Achievements returns achievements ordered by date, newest first.
func (s *Store) Achievements(_ context.Context, studentID, periodID string) ([]academic.AchievementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.AchievementRecord, 0)
	for _, a := range s.achievements {
		if a.StudentID == studentID && a.PeriodID == periodID {
			result = append(result, a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AchievedOn.After(result[j].AchievedOn)
	})
	return result, nil
}

// AttitudeRecords returns the attitude records of a student in a period.
func (s *Store) AttitudeRecords(_ context.Context, studentID, periodID string) ([]academic.AttitudeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.AttitudeRecord, 0)
	for _, a := range s.attitudes {
		if a.StudentID == studentID && a.PeriodID == periodID {
			result = append(result, a)
		}
	}
	return result, nil
}

// ExtracurricularMarks returns the extracurricular marks of a student in a period.
func (s *Store) ExtracurricularMarks(_ context.Context, studentID, periodID string) ([]academic.ExtracurricularMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.ExtracurricularMark, 0)
	for _, m := range s.extracurricular {
		if m.StudentID == studentID && m.PeriodID == periodID {
			result = append(result, m)
		}
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reference data
// ─────────────────────────────────────────────────────────────────────────────

// Students returns the cohort ordered by ID.
func (s *Store) Students(_ context.Context, cohort academic.CohortFilter, _ string) ([]academic.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.Student, 0)
	for _, st := range s.students {
		if inCohort(st, cohort) {
			result = append(result, st)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Student returns one student.
func (s *Store) Student(_ context.Context, id string) (*academic.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return &st, nil
}

// ClassExists reports whether the class is registered.
func (s *Store) ClassExists(_ context.Context, classID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.classes[classID]
	return ok, nil
}

// Subject returns one subject.
func (s *Store) Subject(_ context.Context, id string) (*academic.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subjects[id]
	if !ok {
		return nil, shared.ErrSubjectNotFound
	}
	return &sub, nil
}

// Subjects returns all subjects ordered by code.
func (s *Store) Subjects(_ context.Context) ([]academic.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// GradeComponents returns the components of a period, optionally for one subject.
func (s *Store) GradeComponents(_ context.Context, subjectID, periodID string) ([]academic.GradeComponent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.GradeComponent, 0)
	for _, c := range s.components {
		if c.PeriodID != periodID {
			continue
		}
		if subjectID != "" && c.SubjectID != subjectID {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// Period returns one period.
func (s *Store) Period(_ context.Context, id string) (*academic.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.periods[id]
	if !ok {
		return nil, shared.ErrPeriodNotFound
	}
	return &p, nil
}

// ActivePeriod returns the active period of the latest school year.
func (s *Store) ActivePeriod(_ context.Context) (*academic.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *academic.Period
	for _, p := range s.periods {
		if !p.Active {
			continue
		}
		if found == nil || found.Before(p) {
			p := p
			found = &p
		}
	}
	if found == nil {
		return nil, shared.ErrNoActivePeriod
	}
	return found, nil
}

// Periods returns all periods in chronological order.
func (s *Store) Periods(_ context.Context) ([]academic.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]academic.Period, 0, len(s.periods))
	for _, p := range s.periods {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

func inCohort(st academic.Student, cohort academic.CohortFilter) bool {
	if !cohort.IncludeInactive && !st.IsActive() {
		return false
	}
	return cohort.WholeSchool() || st.ClassID == cohort.ClassID
}

func attendanceKey(studentID, periodID string) string {
	return studentID + "|" + periodID
}

// Dataset exports every record in a deterministic order.
func (s *Store) Dataset() academic.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds := academic.Dataset{
		Components:      append([]academic.GradeComponent(nil), s.components...),
		Grades:          append([]academic.GradeEntry(nil), s.grades...),
		Achievements:    append([]academic.AchievementRecord(nil), s.achievements...),
		Attitudes:       append([]academic.AttitudeRecord(nil), s.attitudes...),
		Extracurricular: append([]academic.ExtracurricularMark(nil), s.extracurricular...),
	}
	for id, name := range s.classes {
		ds.Classes = append(ds.Classes, academic.Class{ID: id, Name: name})
	}
	for _, st := range s.students {
		ds.Students = append(ds.Students, st)
	}
	for _, p := range s.periods {
		ds.Periods = append(ds.Periods, p)
	}
	for _, sub := range s.subjects {
		ds.Subjects = append(ds.Subjects, sub)
	}
	for _, t := range s.attendance {
		ds.Attendance = append(ds.Attendance, t)
	}

	sort.Slice(ds.Classes, func(i, j int) bool { return ds.Classes[i].ID < ds.Classes[j].ID })
	sort.Slice(ds.Students, func(i, j int) bool { return ds.Students[i].ID < ds.Students[j].ID })
	sort.Slice(ds.Periods, func(i, j int) bool { return ds.Periods[i].Before(ds.Periods[j]) })
	sort.Slice(ds.Subjects, func(i, j int) bool { return ds.Subjects[i].Code < ds.Subjects[j].Code })
	sort.Slice(ds.Attendance, func(i, j int) bool {
		return attendanceKey(ds.Attendance[i].StudentID, ds.Attendance[i].PeriodID) <
			attendanceKey(ds.Attendance[j].StudentID, ds.Attendance[j].PeriodID)
	})
	return ds
}
