package models

type Level string

const (
	LevelTrainee Level = "TRAINEE"
	LevelJunior  Level = "JUNIOR"
	LevelMiddle  Level = "MIDDLE"
	LevelSenior  Level = "SENIOR"
	LevelLead    Level = "LEAD"
)

// Levels lists the tiers in progression order.
var Levels = []Level{
	LevelTrainee,
	LevelJunior,
	LevelMiddle,
	LevelSenior,
	LevelLead,
}

// Index returns the position of l in Levels, or -1 for an unknown level.
func (l Level) Index() int {
	for i, lvl := range Levels {
		if lvl == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool {
	return l.Index() >= 0
}

// LevelUp returns the tier following current. The last tier saturates.
func LevelUp(current Level) Level {
	i := current.Index()
	if i+1 >= len(Levels) {
		return Levels[len(Levels)-1]
	}
	return Levels[i+1]
}
