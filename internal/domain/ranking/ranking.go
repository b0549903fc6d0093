// Package ranking содержит доменную модель рейтингов и статистики по группе
// учеников: позиции в рейтинге, распределение оценок по буквенным полосам,
// динамику показателей между периодами.
package ranking

import (
	"errors"
	"fmt"
	"sort"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Position представляет место ученика в рейтинге (начиная с 1).
type Position int

// IsValid проверяет, что позиция положительная.
func (p Position) IsValid() bool {
	return p > 0
}

// String возвращает строковое представление позиции.
func (p Position) String() string {
	return fmt.Sprintf("#%d", p)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка рейтинга.
type Entry struct {
	// Position - место в рейтинге; строго позиционное, без "общих" мест.
	Position Position

	// StudentID - идентификатор ученика.
	StudentID string

	// Name - имя ученика для отображения.
	Name string

	// Average - среднее ученика по предмету за период.
	Average academic.Average
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry{Position: %d, Student: %s, Average: %.2f}", e.Position, e.StudentID, e.Average.Value)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING (Ranked List)
// ══════════════════════════════════════════════════════════════════════════════

// Ranking - отсортированный список учеников группы.
// Пересчитывается целиком при каждом запросе.
type Ranking struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewRanking создаёт пустой Ranking.
func NewRanking() *Ranking {
	return &Ranking{
		entries: make([]*Entry, 0),
		byID:    make(map[string]*Entry),
	}
}

// Add добавляет запись (без автоматической сортировки).
func (r *Ranking) Add(entry *Entry) error {
	if entry == nil {
		return ErrNilEntry
	}
	if entry.StudentID == "" {
		return ErrInvalidStudentID
	}
	if _, exists := r.byID[entry.StudentID]; exists {
		return ErrDuplicateStudent
	}

	r.entries = append(r.entries, entry)
	r.byID[entry.StudentID] = entry
	return nil
}

// SortByAverage сортирует записи по среднему (по убыванию) и присваивает позиции.
// При равном среднем порядок определяется ID ученика, чтобы результат не зависел
// от порядка выдачи хранилища.
func (r *Ranking) SortByAverage() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].Average.Value != r.entries[j].Average.Value {
			return r.entries[i].Average.Value > r.entries[j].Average.Value
		}
		return r.entries[i].StudentID < r.entries[j].StudentID
	})

	for i, entry := range r.entries {
		entry.Position = Position(i + 1)
	}
}

// Top возвращает первые N записей.
func (r *Ranking) Top(n int) []*Entry {
	if n <= 0 {
		return nil
	}
	if n > len(r.entries) {
		n = len(r.entries)
	}
	result := make([]*Entry, n)
	copy(result, r.entries[:n])
	return result
}

// Count возвращает количество записей.
func (r *Ranking) Count() int {
	return len(r.entries)
}

// All возвращает все записи.
func (r *Ranking) All() []*Entry {
	result := make([]*Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// CohortAverage возвращает среднее средних по ученикам, у которых есть оценки.
func (r *Ranking) CohortAverage() academic.Average {
	var (
		sum   float64
		count int
	)
	for _, e := range r.entries {
		if !e.Average.HasData() {
			continue
		}
		sum += e.Average.Value
		count++
	}
	if count == 0 {
		return academic.Average{}
	}
	return academic.Average{Value: sum / float64(count), Count: count}
}

// MasteredCount возвращает количество учеников со средним не ниже порога.
func (r *Ranking) MasteredCount(kkm float64) int {
	var n int
	for _, e := range r.entries {
		if academic.MasteryFor(e.Average, kkm) == academic.Mastered {
			n++
		}
	}
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidStudentID - пустой ID ученика.
	ErrInvalidStudentID = errors.New("invalid student id: cannot be empty")

	// ErrNilEntry - попытка добавить nil запись.
	ErrNilEntry = errors.New("cannot add nil entry")

	// ErrDuplicateStudent - ученик уже есть в рейтинге.
	ErrDuplicateStudent = errors.New("student already exists in ranking")
)
