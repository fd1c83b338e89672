package main

import (
	"fmt"
)

// Player holds one player's in-game state. A player belongs to exactly one
// room and is only ever mutated by that room's event handlers.
type Player struct {
	PlayerID          string `json:"playerId"`
	Name              string `json:"playerName"`
	Money             int    `json:"money"`
	Streak            int    `json:"streak"`
	MultiplierLevel   int    `json:"multiplierLevel"`
	StreakBonusLevel  int    `json:"streakBonusLevel"`
	InsuranceCount    int    `json:"insuranceCount"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	CorrectAnswers    int    `json:"correctAnswers"`
	WrongQuestions    []int  `json:"wrongQuestions"`
}

// newPlayer returns a player with starting levels, no money, and one free
// insurance credit.
func newPlayer(playerID, name string) *Player {
	return &Player{
		PlayerID:         playerID,
		Name:             name,
		MultiplierLevel:  1,
		StreakBonusLevel: 1,
		InsuranceCount:   1,
	}
}

func (p *Player) hasWrongQuestion(questionID int) bool {
	for _, id := range p.WrongQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

func (p *Player) addWrongQuestion(questionID int) {
	if p.hasWrongQuestion(questionID) {
		return
	}
	p.WrongQuestions = append(p.WrongQuestions, questionID)
}

func (p *Player) removeWrongQuestion(questionID int) {
	dst := p.WrongQuestions[:0]
	for _, id := range p.WrongQuestions {
		if id != questionID {
			dst = append(dst, id)
		}
	}
	p.WrongQuestions = dst
}

// Answer feedback kinds, sent to clients alongside the feedback text.
const (
	feedbackCorrect      = "correct"
	feedbackStreakSaved  = "streak_saved"
	feedbackStreakBroken = "streak_broken"
)

// computeEarnings returns the payout for a correct answer given the
// player's current streak and upgrade levels.
func computeEarnings(p *Player) int {
	base := 100 * p.MultiplierLevel
	streakBonus := p.Streak * p.StreakBonusLevel * 20
	return base + streakBonus
}

// applyAnswer mutates p according to whether their answer was correct and
// returns the feedback kind, user-facing text, and money awarded. Earnings
// are computed from the streak and levels as they were before the answer.
func applyAnswer(p *Player, questionID int, correct bool) (kind, text string, earnings int) {
	p.QuestionsAnswered++

	if correct {
		earnings = computeEarnings(p)
		p.CorrectAnswers++
		p.Money += earnings
		p.Streak++
		p.removeWrongQuestion(questionID)
		return feedbackCorrect, fmt.Sprintf("Correct! +$%d", earnings), earnings
	}

	p.addWrongQuestion(questionID)

	if p.InsuranceCount > 0 {
		p.InsuranceCount--
		return feedbackStreakSaved, "Wrong! Streak Saved! Insurance used.", 0
	}

	p.Streak = 0
	return feedbackStreakBroken, "Wrong! Streak Broken.", 0
}

// Upgrade types purchasable in the shop.
const (
	upgradeMultiplier  = "multiplier"
	upgradeStreakBonus = "streak_bonus"
	upgradeInsurance   = "insurance"
)

// upgradeCost returns what the next purchase of the given type costs for
// this player. Leveled upgrades get more expensive as they rise; insurance
// is a flat price.
func upgradeCost(p *Player, upgradeType string) (int, error) {
	switch upgradeType {
	case upgradeMultiplier:
		return 1000 * (p.MultiplierLevel + 1), nil
	case upgradeStreakBonus:
		return 500 * (p.StreakBonusLevel + 1), nil
	case upgradeInsurance:
		return 2500, nil
	default:
		return 0, fmt.Errorf("unknown upgrade type: %q", upgradeType)
	}
}

// applyUpgrade deducts the cost and applies the upgrade, returning the shop
// feedback text. On errInsufficientFunds the player is left untouched.
func applyUpgrade(p *Player, upgradeType string) (string, error) {
	cost, err := upgradeCost(p, upgradeType)
	if err != nil {
		return "", err
	}

	if p.Money < cost {
		return "", errInsufficientFunds
	}

	p.Money -= cost

	switch upgradeType {
	case upgradeMultiplier:
		p.MultiplierLevel++
		return fmt.Sprintf("Multiplier upgraded to Lvl %d!", p.MultiplierLevel), nil
	case upgradeStreakBonus:
		p.StreakBonusLevel++
		return fmt.Sprintf("Streak Bonus upgraded to Lvl %d!", p.StreakBonusLevel), nil
	default:
		p.InsuranceCount++
		return "1 Insurance bought!", nil
	}
}
