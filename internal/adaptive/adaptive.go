// Package adaptive holds the pure state-transition engine of the quiz:
// scoring, hysteresis-stabilized difficulty adjustment, and streak decay.
// Everything here is a total function over its inputs; persistence, clocks,
// and identifiers live with the callers.
package adaptive

import (
	"math"
	"time"
)

const (
	MinDifficulty           = 1.0
	MaxDifficulty           = 10.0
	MaxStreakMultiplier     = 5.0
	MomentumDecay           = 0.7
	MomentumThreshold       = 1.5 // hysteresis band
	MomentumMax             = 3.0
	RecentWindow            = 10
	StreakDecayThreshold    = 30 * time.Minute
	StreakDecayRate         = 0.5
	BasePointsPerDifficulty = 10.0

	correctImpulse   = 0.6
	incorrectImpulse = -0.8 // asymmetric: raising difficulty is harder than lowering
)

// Round2 is the shared rounding policy: two decimals, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// StreakMultiplier returns the capped score multiplier for a streak.
func StreakMultiplier(streak int) float64 {
	return math.Min(1+float64(streak)*0.5, MaxStreakMultiplier)
}

// ScoreDelta computes the points awarded for one answer. The streak argument
// is the value before this answer's increment, so the first correct answer of
// a run earns the base multiplier.
func ScoreDelta(difficulty float64, streak int, correct bool) float64 {
	if !correct {
		return 0
	}
	return Round2(difficulty * BasePointsPerDifficulty * StreakMultiplier(streak))
}

// DecayStreak halves the streak once per full 30-minute period of inactivity,
// flooring the result. It reports whether any decay was applied. Invoked
// lazily on the next interaction, never by a timer.
func DecayStreak(streak int, lastAnswerAt *time.Time, now time.Time) (int, bool) {
	if streak == 0 || lastAnswerAt == nil {
		return streak, false
	}
	elapsed := now.Sub(*lastAnswerAt)
	if elapsed < StreakDecayThreshold {
		return streak, false
	}
	periods := int(elapsed / StreakDecayThreshold)
	factor := math.Pow(1-StreakDecayRate, float64(periods))
	decayed := int(math.Floor(float64(streak) * factor))
	return decayed, decayed != streak
}

// State is the slice of user state the adapter reads.
type State struct {
	CurrentDifficulty float64
	Streak            int
	MaxStreak         int
	TotalScore        float64
	TotalAnswers      int
	CorrectAnswers    int
	Momentum          float64
	RecentCorrect     float64
	RecentTotal       int
	StateVersion      int64
}

// Adjustment is the difficulty adapter's output.
type Adjustment struct {
	Difficulty    float64
	Momentum      float64
	RecentCorrect float64
	RecentTotal   int
}

// Adapt applies one answer outcome to the adaptive controls: rolling-window
// update, momentum decay plus impulse, the hysteresis gate, and the
// extreme-accuracy override. The override always wins over the gate.
func Adapt(s State, correct bool) Adjustment {
	recentTotal := s.RecentTotal + 1
	if recentTotal > RecentWindow {
		recentTotal = RecentWindow
	}
	recentCorrect := s.RecentCorrect
	if s.RecentTotal >= RecentWindow {
		// Window is full: decay old answers out before adding this one.
		recentCorrect = Round2(recentCorrect * (RecentWindow - 1) / RecentWindow)
	}
	if correct {
		recentCorrect++
	}

	impulse := incorrectImpulse
	if correct {
		impulse = correctImpulse
	}
	momentum := s.Momentum*MomentumDecay + impulse
	momentum = math.Max(-MomentumMax, math.Min(MomentumMax, momentum))
	momentum = Round2(momentum)

	difficulty := s.CurrentDifficulty
	if momentum >= MomentumThreshold {
		difficulty = math.Min(MaxDifficulty, Round2(difficulty+0.5))
		momentum = 0
	} else if momentum <= -MomentumThreshold {
		difficulty = math.Max(MinDifficulty, Round2(difficulty-0.5))
		momentum = 0
	}

	// Extreme recent accuracy forces a full step regardless of the gate.
	if recentTotal >= 5 {
		accuracy := recentCorrect / float64(recentTotal)
		if accuracy > 0.9 && difficulty < MaxDifficulty {
			difficulty = math.Min(MaxDifficulty, difficulty+1)
			momentum = 0
		} else if accuracy < 0.2 && difficulty > MinDifficulty {
			difficulty = math.Max(MinDifficulty, difficulty-1)
			momentum = 0
		}
	}

	return Adjustment{
		Difficulty:    difficulty,
		Momentum:      momentum,
		RecentCorrect: recentCorrect,
		RecentTotal:   recentTotal,
	}
}

// Process composes scoring, streak bookkeeping, and the difficulty adapter
// into the single atomic transition for one answer. The score delta uses the
// pre-transition streak; the version increments by exactly one.
func Process(s State, correct bool) (State, float64) {
	newStreak := 0
	if correct {
		newStreak = s.Streak + 1
	}
	delta := ScoreDelta(s.CurrentDifficulty, s.Streak, correct)
	adj := Adapt(s, correct)

	next := State{
		CurrentDifficulty: adj.Difficulty,
		Streak:            newStreak,
		MaxStreak:         s.MaxStreak,
		TotalScore:        Round2(s.TotalScore + delta),
		TotalAnswers:      s.TotalAnswers + 1,
		CorrectAnswers:    s.CorrectAnswers,
		Momentum:          adj.Momentum,
		RecentCorrect:     adj.RecentCorrect,
		RecentTotal:       adj.RecentTotal,
		StateVersion:      s.StateVersion + 1,
	}
	if newStreak > next.MaxStreak {
		next.MaxStreak = newStreak
	}
	if correct {
		next.CorrectAnswers++
	}
	return next, delta
}
