package academic

import (
	"math"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPONENT CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Словари для вывода типа компонента по названию.
// Проверка знаний идёт первой: "ujian praktik" считается знанием.
var (
	knowledgeTokens = []string{"pengetahuan", "kognitif", "tulis", "ujian"}
	skillTokens     = []string{"keterampilan", "praktik", "psikomotor", "project"}
)

// ClassifyComponent выводит тип компонента из свободного названия
// (регистронезависимый поиск подстроки). Компонент, не совпавший ни с одним
// словарём, получает KindOther и выпадает из обоих представлений.
func ClassifyComponent(name string) ComponentKind {
	lower := strings.ToLower(name)
	for _, token := range knowledgeTokens {
		if strings.Contains(lower, token) {
			return KindKnowledge
		}
	}
	for _, token := range skillTokens {
		if strings.Contains(lower, token) {
			return KindSkill
		}
	}
	return KindOther
}

// ComponentFilter отбирает компоненты, которые входят в среднее.
// nil означает "все компоненты".
type ComponentFilter func(GradeComponent) bool

// KnowledgeOnly отбирает компоненты знаний.
func KnowledgeOnly(c GradeComponent) bool {
	return c.EffectiveKind() == KindKnowledge
}

// SkillOnly отбирает компоненты навыков.
func SkillOnly(c GradeComponent) bool {
	return c.EffectiveKind() == KindSkill
}

// FilterForKind возвращает фильтр для указанного типа; для пустого типа - nil.
func FilterForKind(kind ComponentKind) ComponentFilter {
	switch kind {
	case KindKnowledge:
		return KnowledgeOnly
	case KindSkill:
		return SkillOnly
	case KindOther:
		return func(c GradeComponent) bool { return c.EffectiveKind() == KindOther }
	default:
		return nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AVERAGES
// ══════════════════════════════════════════════════════════════════════════════

// Average - невзвешенное среднее арифметическое оценок.
// При отсутствии оценок Value равно 0, а Count - 0: вызывающий код
// должен проверять HasData, чтобы отличить "нет данных" от настоящего нуля.
type Average struct {
	Value float64
	Count int
}

// HasData возвращает true, если среднее посчитано хотя бы по одной оценке.
func (a Average) HasData() bool {
	return a.Count > 0
}

// Rounded возвращает значение, округлённое до 2 знаков (только для отображения).
func (a Average) Rounded() float64 {
	return Round2(a.Value)
}

// Round2 округляет до двух знаков после запятой.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeAverage считает среднее по оценкам, чей компонент проходит фильтр.
// components - справочник компонентов по ID; оценка с неизвестным компонентом
// проверяется как компонент без названия.
func ComputeAverage(entries []GradeEntry, components map[string]GradeComponent, filter ComponentFilter) Average {
	var (
		sum   float64
		count int
	)
	for _, e := range entries {
		if filter != nil {
			comp, ok := components[e.ComponentID]
			if !ok {
				comp = GradeComponent{ID: e.ComponentID}
			}
			if !filter(comp) {
				continue
			}
		}
		sum += e.Score
		count++
	}
	if count == 0 {
		return Average{}
	}
	return Average{Value: sum / float64(count), Count: count}
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

// ComputeAttendanceRate оценивает процент посещаемости по числу пропусков и
// предполагаемому количеству учебных дней. Результат всегда в [0, 100].
// При assumedTotalSchoolDays <= 0 возвращается 100. Отсутствующий tally
// трактуется как ноль пропусков.
func ComputeAttendanceRate(tally *AttendanceTally, assumedTotalSchoolDays int) float64 {
	if assumedTotalSchoolDays <= 0 {
		return 100
	}
	var absences int
	if tally != nil {
		absences = tally.TotalAbsences()
	}
	present := assumedTotalSchoolDays - absences
	rate := float64(present) / float64(assumedTotalSchoolDays) * 100
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY
// ══════════════════════════════════════════════════════════════════════════════

// MasteryStatus - освоен ли предмет относительно KKM.
type MasteryStatus string

const (
	Mastered    MasteryStatus = "mastered"     // tuntas
	NotMastered MasteryStatus = "not_mastered" // belum tuntas
	NoData      MasteryStatus = "no_data"
)

// ClassifyMasteryStatus сравнивает среднее с порогом (включительно).
func ClassifyMasteryStatus(average, threshold float64) MasteryStatus {
	if average >= threshold {
		return Mastered
	}
	return NotMastered
}

// MasteryFor классифицирует среднее, возвращая NoData при отсутствии оценок.
func MasteryFor(avg Average, kkm float64) MasteryStatus {
	if !avg.HasData() {
		return NoData
	}
	return ClassifyMasteryStatus(avg.Value, kkm)
}

// ══════════════════════════════════════════════════════════════════════════════
// LETTER BANDS
// ══════════════════════════════════════════════════════════════════════════════

// LetterGrade - буквенная полоса оценки.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeE LetterGrade = "E"
)

// LetterGrades - все полосы от высшей к низшей.
var LetterGrades = []LetterGrade{GradeA, GradeB, GradeC, GradeD, GradeE}

// Predicate относит оценку к полосе: A:[90,100], B:[80,90), C:[70,80),
// D:[60,70), E:[0,60). Значения выше 100 попадают в A, ниже 0 - в E.
func Predicate(score float64) LetterGrade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeE
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// SubjectSummary - итог ученика по предмету для табеля.
type SubjectSummary struct {
	Subject   Subject
	Entries   []GradeEntry
	Knowledge Average
	Skill     Average
	Final     Average
	Mastery   MasteryStatus
}

// Predicate возвращает буквенную полосу итогового среднего или "-" без данных.
func (s SubjectSummary) Predicate() string {
	if !s.Final.HasData() {
		return "-"
	}
	return string(Predicate(s.Final.Value))
}

// SummarizeSubject строит итог по предмету. Итоговое среднее считается
// по всем оценкам предмета, без учёта типа компонента.
func SummarizeSubject(subject Subject, entries []GradeEntry, components map[string]GradeComponent) SubjectSummary {
	final := ComputeAverage(entries, components, nil)
	return SubjectSummary{
		Subject:   subject,
		Entries:   entries,
		Knowledge: ComputeAverage(entries, components, KnowledgeOnly),
		Skill:     ComputeAverage(entries, components, SkillOnly),
		Final:     final,
		Mastery:   MasteryFor(final, subject.KKM),
	}
}

// ComponentIndex строит справочник компонентов по ID.
func ComponentIndex(components []GradeComponent) map[string]GradeComponent {
	index := make(map[string]GradeComponent, len(components))
	for _, c := range components {
		index[c.ID] = c
	}
	return index
}
