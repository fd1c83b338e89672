package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPlayerDefaults(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")

	req.Equal("id-1", p.PlayerID)
	req.Equal("Alice", p.Name)
	req.Zero(p.Money)
	req.Zero(p.Streak)
	req.Equal(1, p.MultiplierLevel)
	req.Equal(1, p.StreakBonusLevel)
	req.Equal(1, p.InsuranceCount)
	req.Empty(p.WrongQuestions)
}

func TestComputeEarnings(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	req.Equal(100, computeEarnings(p))

	p.MultiplierLevel = 3
	req.Equal(300, computeEarnings(p))

	p.Streak = 5
	p.StreakBonusLevel = 2
	req.Equal(300+5*2*20, computeEarnings(p))
}

func TestComputeEarningsMonotonic(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	p.Streak = 3

	prev := computeEarnings(p)
	for level := 2; level <= 10; level++ {
		p.MultiplierLevel = level
		cur := computeEarnings(p)
		req.GreaterOrEqual(cur, prev)
		prev = cur
	}

	prev = computeEarnings(p)
	for level := 2; level <= 10; level++ {
		p.StreakBonusLevel = level
		cur := computeEarnings(p)
		req.GreaterOrEqual(cur, prev)
		prev = cur
	}

	prev = computeEarnings(p)
	for streak := 4; streak <= 12; streak++ {
		p.Streak = streak
		cur := computeEarnings(p)
		req.GreaterOrEqual(cur, prev)
		prev = cur
	}
}

func TestApplyAnswerCorrect(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	p.Streak = 2
	p.MultiplierLevel = 2
	p.StreakBonusLevel = 3
	p.WrongQuestions = []int{2}

	want := computeEarnings(p)
	kind, text, earnings := applyAnswer(p, 2, true)

	req.Equal(feedbackCorrect, kind)
	req.NotEmpty(text)
	req.Equal(want, earnings)
	req.Equal(want, p.Money)
	req.Equal(3, p.Streak)
	req.Empty(p.WrongQuestions)
	req.Equal(1, p.QuestionsAnswered)
	req.Equal(1, p.CorrectAnswers)
}

func TestApplyAnswerInsured(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	p.Streak = 4

	kind, _, earnings := applyAnswer(p, 7, false)

	req.Equal(feedbackStreakSaved, kind)
	req.Zero(earnings)
	req.Equal(4, p.Streak)
	req.Zero(p.InsuranceCount)
	req.Equal([]int{7}, p.WrongQuestions)
}

func TestApplyAnswerStreakBroken(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	p.Streak = 4
	p.InsuranceCount = 0

	kind, _, earnings := applyAnswer(p, 7, false)

	req.Equal(feedbackStreakBroken, kind)
	req.Zero(earnings)
	req.Zero(p.Streak)
	req.Equal([]int{7}, p.WrongQuestions)

	// Missing the same question twice must not duplicate the entry.
	applyAnswer(p, 7, false)
	req.Equal([]int{7}, p.WrongQuestions)
}

func TestUpgradeCosts(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")

	cost, err := upgradeCost(p, upgradeMultiplier)
	req.NoError(err)
	req.Equal(2000, cost)

	cost, err = upgradeCost(p, upgradeStreakBonus)
	req.NoError(err)
	req.Equal(1000, cost)

	cost, err = upgradeCost(p, upgradeInsurance)
	req.NoError(err)
	req.Equal(2500, cost)

	_, err = upgradeCost(p, "nonsense")
	req.Error(err)
}

func TestApplyUpgrade(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	p.Money = 3000

	msg, err := applyUpgrade(p, upgradeMultiplier)
	req.NoError(err)
	req.NotEmpty(msg)
	req.Equal(2, p.MultiplierLevel)
	req.Equal(1000, p.Money)

	msg, err = applyUpgrade(p, upgradeStreakBonus)
	req.NoError(err)
	req.NotEmpty(msg)
	req.Equal(2, p.StreakBonusLevel)
	req.Zero(p.Money)
}

func TestApplyUpgradeInsufficientFunds(t *testing.T) {
	req := require.New(t)

	p := newPlayer("id-1", "Alice")
	p.Money = 2499

	_, err := applyUpgrade(p, upgradeInsurance)
	req.ErrorIs(err, errInsufficientFunds)

	// Declined purchases leave the player untouched.
	req.Equal(2499, p.Money)
	req.Equal(1, p.InsuranceCount)
	req.GreaterOrEqual(p.Money, 0)
}
