package main

import (
	"crypto/rand"
	"encoding/binary"
)

// Extra pool entries added for every outstanding wrong answer, making
// previously-missed questions proportionally more likely to reappear.
const missWeight = 4

// questionPool builds the weighted candidate pool for the next question:
// each catalog question once, plus missWeight extra entries per
// (player, outstanding wrong question) pair. Wrong-question IDs that no
// longer resolve in the set are skipped.
func questionPool(set QuestionSet, players []*Player) []Question {
	pool := make([]Question, 0, len(set))
	pool = append(pool, set...)

	for _, p := range players {
		for _, qID := range p.WrongQuestions {
			for _, q := range set {
				if q.ID == qID {
					for i := 0; i < missWeight; i++ {
						pool = append(pool, q)
					}
					break
				}
			}
		}
	}

	return pool
}

// selectNext picks the next question uniformly at random from the weighted
// pool.
func selectNext(set QuestionSet, players []*Player) (Question, error) {
	pool := questionPool(set, players)
	if len(pool) == 0 {
		return Question{}, errNoQuestionsAvailable
	}

	return pool[randomIndex(len(pool))], nil
}

// randomIndex returns a uniform random int in [0, n) using rejection
// sampling over crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}

	max := (1 << 32) - ((1 << 32) % uint64(n))
	buf := make([]byte, 4)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		v := uint64(binary.BigEndian.Uint32(buf))
		if v < max {
			return int(v % uint64(n))
		}
	}
}
