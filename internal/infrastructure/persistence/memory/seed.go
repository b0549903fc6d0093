package memory

import (
	"fmt"
	"time"

	"github.com/raporhub/rapor-hub/internal/domain/academic"
)

// Demo identifiers used by the seeded dataset.
const (
	DemoClassA    = "class-x-ipa-1"
	DemoClassB    = "class-x-ips-1"
	DemoOddTerm   = "2024-ganjil"
	DemoEvenTerm  = "2024-genap"
	DemoMath      = "subj-mtk"
	DemoIndonesia = "subj-bin"
)

// NewDemoStore returns a store seeded with a small school: two classes,
// two subjects, two periods (the even term active) and a full set of
// records for most students. Student "st-05" has no attitude records and
// "st-06" is inactive.
func NewDemoStore() *Store {
	s := NewStore()

	s.AddClass(DemoClassA, "X IPA 1")
	s.AddClass(DemoClassB, "X IPS 1")

	s.AddPeriod(academic.Period{
		ID: DemoOddTerm, SchoolYear: "2024/2025", Semester: academic.SemesterOdd,
		StartsOn: time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC),
	})
	s.AddPeriod(academic.Period{
		ID: DemoEvenTerm, SchoolYear: "2024/2025", Semester: academic.SemesterEven, Active: true,
		StartsOn: time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
	})

	s.AddSubject(academic.Subject{ID: DemoMath, Code: "MTK", Name: "Matematika", KKM: 75})
	s.AddSubject(academic.Subject{ID: DemoIndonesia, Code: "BIN", Name: "Bahasa Indonesia", KKM: 70})

	students := []academic.Student{
		{ID: "st-01", NIS: "2024001", Name: "Ahmad Fauzi", ClassID: DemoClassA},
		{ID: "st-02", NIS: "2024002", Name: "Siti Rahmawati", ClassID: DemoClassA},
		{ID: "st-03", NIS: "2024003", Name: "Budi Santoso", ClassID: DemoClassA},
		{ID: "st-04", NIS: "2024004", Name: "Dewi Lestari", ClassID: DemoClassB},
		{ID: "st-05", NIS: "2024005", Name: "Rizky Pratama", ClassID: DemoClassB},
		{ID: "st-06", NIS: "2024006", Name: "Nur Aisyah", ClassID: DemoClassB, Status: academic.StudentInactive},
	}
	for _, st := range students {
		s.AddStudent(st)
	}

	// Legacy components carry no kind and are classified by name.
	for _, p := range []string{DemoOddTerm, DemoEvenTerm} {
		for _, subj := range []string{DemoMath, DemoIndonesia} {
			s.AddComponent(academic.GradeComponent{ID: componentID(subj, p, "uh"), SubjectID: subj, PeriodID: p, Name: "Ujian Tulis"})
			s.AddComponent(academic.GradeComponent{ID: componentID(subj, p, "pr"), SubjectID: subj, PeriodID: p, Name: "Praktik", Kind: academic.KindSkill})
		}
	}

	scores := map[string][2]float64{
		"st-01": {92, 88},
		"st-02": {81, 77},
		"st-03": {68, 74},
		"st-04": {85, 90},
		"st-05": {58, 63},
		"st-06": {70, 70},
	}
	recorded := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	n := 0
	for _, st := range students {
		base := scores[st.ID]
		for pi, p := range []string{DemoOddTerm, DemoEvenTerm} {
			shift := float64(pi * 3)
			for si, subj := range []string{DemoMath, DemoIndonesia} {
				n++
				s.AddGrade(academic.GradeEntry{
					ID: fmt.Sprintf("g-%03d", n), StudentID: st.ID, SubjectID: subj, PeriodID: p,
					ComponentID: componentID(subj, p, "uh"), Score: clampScore(base[si] + shift), RecordedAt: recorded,
				})
				n++
				s.AddGrade(academic.GradeEntry{
					ID: fmt.Sprintf("g-%03d", n), StudentID: st.ID, SubjectID: subj, PeriodID: p,
					ComponentID: componentID(subj, p, "pr"), Score: clampScore(base[1-si] + shift - 2), RecordedAt: recorded,
				})
			}
		}
	}

	s.SetAttendance(academic.AttendanceTally{StudentID: "st-01", PeriodID: DemoEvenTerm, Sick: 2, Permission: 1})
	s.SetAttendance(academic.AttendanceTally{StudentID: "st-02", PeriodID: DemoEvenTerm, Sick: 1})
	s.SetAttendance(academic.AttendanceTally{StudentID: "st-03", PeriodID: DemoEvenTerm, Permission: 2, Unexcused: 3})
	s.SetAttendance(academic.AttendanceTally{StudentID: "st-05", PeriodID: DemoEvenTerm, Sick: 4, Unexcused: 6})
	s.SetAttendance(academic.AttendanceTally{StudentID: "st-01", PeriodID: DemoOddTerm, Sick: 1})
	s.SetAttendance(academic.AttendanceTally{StudentID: "st-05", PeriodID: DemoOddTerm, Unexcused: 2})

	s.AddAchievement(academic.AchievementRecord{
		ID: "ach-1", StudentID: "st-01", PeriodID: DemoEvenTerm, Title: "Olimpiade Sains Nasional",
		Level: academic.LevelProvince, Category: "akademik", Rank: "Juara 2",
		AchievedOn: time.Date(2025, time.April, 12, 0, 0, 0, 0, time.UTC),
	})
	s.AddAchievement(academic.AchievementRecord{
		ID: "ach-2", StudentID: "st-01", PeriodID: DemoEvenTerm, Title: "Lomba Cerdas Cermat",
		Level: academic.LevelDistrict, Category: "akademik", Rank: "Juara 1",
		AchievedOn: time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC),
	})
	s.AddAchievement(academic.AchievementRecord{
		ID: "ach-3", StudentID: "st-04", PeriodID: DemoEvenTerm, Title: "Festival Tari Daerah",
		Level: academic.LevelSchool, Category: "seni", Rank: "Juara 3",
		AchievedOn: time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC),
	})

	for _, id := range []string{"st-01", "st-02", "st-03", "st-04"} {
		s.AddAttitude(academic.AttitudeRecord{
			ID: "att-sos-" + id, StudentID: id, PeriodID: DemoEvenTerm, Aspect: academic.AspectSocial,
			Rating: "B", Description: "Menunjukkan sikap santun dan bertanggung jawab.",
		})
		s.AddAttitude(academic.AttitudeRecord{
			ID: "att-spr-" + id, StudentID: id, PeriodID: DemoEvenTerm, Aspect: academic.AspectSpiritual,
			Rating: "A", Description: "Taat beribadah dan bersyukur.",
		})
	}

	s.AddExtracurricular(academic.ExtracurricularMark{ID: "eks-1", StudentID: "st-01", PeriodID: DemoEvenTerm, Activity: "Pramuka", Mark: "A", Notes: "Aktif"})
	s.AddExtracurricular(academic.ExtracurricularMark{ID: "eks-2", StudentID: "st-02", PeriodID: DemoEvenTerm, Activity: "Paskibra", Mark: "B"})
	s.AddExtracurricular(academic.ExtracurricularMark{ID: "eks-3", StudentID: "st-04", PeriodID: DemoEvenTerm, Activity: "Karawitan", Mark: "A", Notes: "Tampil di pentas seni"})

	return s
}

func componentID(subjectID, periodID, suffix string) string {
	return subjectID + "-" + periodID + "-" + suffix
}

func clampScore(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
