package mapping

import "github.com/examkit/answerkey/internal/core/domain"

// MergeStats summarizes one merge of the answer join table into the catalog.
type MergeStats struct {
	QuestionCount int `json:"question_count"`
	MergedCount   int `json:"merged_answer_count"`
}

// MergeAnswersIntoQuestions attaches answers from the join table to catalog
// records by question UID. Records without a UID get one derived first.
// Questions without an answer pass through untouched.
func MergeAnswersIntoQuestions(
	questions []domain.QuestionRecord,
	join map[string]QuestionAnswer,
	siteHost string,
) ([]domain.QuestionRecord, MergeStats) {
	out := make([]domain.QuestionRecord, len(questions))
	stats := MergeStats{QuestionCount: len(questions)}

	for i, q := range questions {
		if q.QuestionUID == "" {
			q.QuestionUID = domain.QuestionUIDFor(q, siteHost)
		}
		if answer, ok := join[q.QuestionUID]; ok {
			q.AnswerUID = answer.AnswerUID
			q.AnswerMeta = &domain.AnswerMeta{
				Type:      answer.Answer.Type,
				Answer:    answer.Answer.Raw(),
				Tolerance: answer.Tolerance,
				Source:    "question_uid",
			}
			stats.MergedCount++
		}
		out[i] = q
	}
	return out, stats
}
