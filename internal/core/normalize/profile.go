package normalize

// Profile tunes the scanner for a particular OCR engine. Values of zero take
// the defaults below; profiles are typically loaded from a YAML file.
type Profile struct {
	AnswerSeparators    []string `yaml:"answer_separators"`
	LookaheadLines      int      `yaml:"lookahead_lines"`
	MaxAnswerLineLength int      `yaml:"max_answer_line_length"`
	MaxChapterNo        int      `yaml:"max_chapter_no"`
	MaxSubjectCode      int      `yaml:"max_subject_code"`
	MaxQuestionNo       int      `yaml:"max_question_no"`
}

func DefaultProfile() Profile {
	return Profile{
		AnswerSeparators:    []string{";", ",", "/"},
		LookaheadLines:      4,
		MaxAnswerLineLength: 96,
		MaxChapterNo:        20,
		MaxSubjectCode:      120,
		MaxQuestionNo:       120,
	}
}

func (p Profile) normalize() Profile {
	def := DefaultProfile()
	out := p
	if len(out.AnswerSeparators) == 0 {
		out.AnswerSeparators = def.AnswerSeparators
	}
	if out.LookaheadLines <= 0 {
		out.LookaheadLines = def.LookaheadLines
	}
	if out.MaxAnswerLineLength <= 0 {
		out.MaxAnswerLineLength = def.MaxAnswerLineLength
	}
	if out.MaxChapterNo <= 0 {
		out.MaxChapterNo = def.MaxChapterNo
	}
	if out.MaxSubjectCode <= 0 {
		out.MaxSubjectCode = def.MaxSubjectCode
	}
	if out.MaxQuestionNo <= 0 {
		out.MaxQuestionNo = def.MaxQuestionNo
	}
	return out
}
