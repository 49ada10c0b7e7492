package scoring

type Grade string

const (
	GradeHot         Grade = "hot"
	GradeWarm        Grade = "warm"
	GradeCold        Grade = "cold"
	GradeQualified   Grade = "qualified"
	GradeUnqualified Grade = "unqualified"
)

// GradeOf maps a score to its grade. Lower bounds are inclusive.
func GradeOf(score int) Grade {
	switch {
	case score >= 80:
		return GradeHot
	case score >= 60:
		return GradeWarm
	case score >= 40:
		return GradeCold
	case score >= 20:
		return GradeQualified
	default:
		return GradeUnqualified
	}
}
