package main

import (
	"sort"
)

// Question is a single multiple-choice question. The correct answer is
// never serialized, so question payloads can be sent to clients as-is.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
	Correct string   `json:"-"`
}

// QuestionSet is an immutable, ordered collection of questions.
type QuestionSet []Question

// questionSets maps set IDs to their questions. Sets are read-only after
// startup; rooms reference them by ID only.
var questionSets = map[string]QuestionSet{
	"4h8z3k": {
		{ID: 1, Text: "What is the capital of France?", Answers: []string{"Berlin", "Paris", "Madrid", "Rome"}, Correct: "Paris"},
		{ID: 2, Text: "What is 7 multiplied by 8?", Answers: []string{"49", "56", "64", "72"}, Correct: "56"},
		{ID: 3, Text: "Which is a primary color?", Answers: []string{"Green", "Orange", "Blue", "Purple"}, Correct: "Blue"},
		{ID: 4, Text: "Gimkit was created by whom?", Answers: []string{"Josh Feinsilber", "Elon Musk", "Bill Gates", "Mark Zuckerberg"}, Correct: "Josh Feinsilber"},
	},
}

func questionSet(id string) (QuestionSet, bool) {
	set, ok := questionSets[id]
	return set, ok
}

func findQuestion(setID string, questionID int) (Question, bool) {
	set, ok := questionSets[setID]
	if !ok {
		return Question{}, false
	}
	for _, q := range set {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// availableSets returns all question set IDs in sorted order.
func availableSets() []string {
	ids := make([]string, 0, len(questionSets))
	for id := range questionSets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
