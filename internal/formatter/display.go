package formatter

import (
	"fmt"
	"math"
	"time"
)

// FormatTime renders a second count as MM:SS, e.g. a round timer.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatDuration renders minutes as "45m", "1h 30m" or "2h".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest > 0 {
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
	return fmt.Sprintf("%dh", hours)
}

// FormatDate renders t relative to now: "Today", "Yesterday", "3 days ago", else "Jan 2" with the year
// added when it differs from now's. Future dates are shown as dates.
func FormatDate(t, now time.Time) string {
	days := int(math.Floor(now.Sub(t).Hours() / 24))
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return fmt.Sprintf("%d days ago", days)
	}
	if t.Year() != now.Year() {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2")
}

var trainingTypes = map[string]string{
	"technique":    "Technique Training",
	"conditioning": "Conditioning",
	"sparring":     "Sparring Session",
	"mixed":        "Mixed Training",
	"cardio":       "Cardio Training",
	"strength":     "Strength Training",
}

// FormatTrainingType names a training session type. Unknown types are returned unchanged.
func FormatTrainingType(kind string) string {
	if name, ok := trainingTypes[kind]; ok {
		return name
	}
	return kind
}

// Skill is a named band of assessment scores.
type Skill struct {
	Level string
	Color string
}

// SkillLevel maps a 0-10 assessment score to its band.
func SkillLevel(score float64) Skill {
	switch {
	case score >= 9:
		return Skill{"Expert", "purple"}
	case score >= 8:
		return Skill{"Advanced", "blue"}
	case score >= 6:
		return Skill{"Intermediate", "green"}
	case score >= 4:
		return Skill{"Beginner", "yellow"}
	default:
		return Skill{"Novice", "gray"}
	}
}
