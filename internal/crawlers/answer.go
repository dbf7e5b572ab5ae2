package crawlers

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	// DefaultAnswerPages answer_question_from_web 默认最多访问的页面数
	DefaultAnswerPages = 8
	maxAnswerSources   = 3
)

var (
	questionPunct = regexp.MustCompile(`[?.,;:!]`)
	questionWord  = regexp.MustCompile(`^(what|who|where|when|why|how|which|can|will|is|are|does|do|did|should|would|could|has|have)\b`)
	numericAsk    = regexp.MustCompile(`(?i)\b(how much|how many|how old|how long|how far|how high|how wide|how tall)\b`)
	numberPattern = regexp.MustCompile(`\b\d+\.?\d*\b`)

	// answerIndicators 各类问题的答案特征
	answerIndicators = map[string]*regexp.Regexp{
		"what":  regexp.MustCompile(`(?i)is\s+[^.?!]+`),
		"who":   regexp.MustCompile(`(?i)(is|was)\s+[^.?!]+`),
		"where": regexp.MustCompile(`(?i)(in|at|on|located\s+in|near)\s+[^.?!]+`),
		"when": regexp.MustCompile(`(?i)(in|on|at|during)\s+[0-9]|january|february|march|april|may|june|july|` +
			`august|september|october|november|december`),
		"why": regexp.MustCompile(`(?i)because|since|due\s+to|as\s+a\s+result\s+of`),
		"how": regexp.MustCompile(`(?i)by\s+[^.?!]+|through\s+[^.?!]+|using\s+[^.?!]+`),
	}
)

// CleanQuestion 去掉标点并转小写
func CleanQuestion(question string) string {
	return strings.ToLower(questionPunct.ReplaceAllString(question, ""))
}

// QuestionType 问题的引导词, 无法识别时为 unknown
func QuestionType(question string) string {
	if m := questionWord.FindString(CleanQuestion(question)); m != "" {
		return m
	}
	return "unknown"
}

// ScoreCandidate 为候选段落打分
// 相关度 + 答案特征3分 + 每个长于3个字符的问题词0.5分 + 数量类问题中出现数字2分
func ScoreCandidate(question, questionType, text string, relevance int) float64 {
	clean := CleanQuestion(question)
	score := float64(relevance)

	if pattern, ok := answerIndicators[questionType]; ok && pattern.MatchString(text) {
		score += 3
	}

	lower := strings.ToLower(text)
	for _, term := range strings.Fields(clean) {
		if utf8.RuneCountInString(term) > 3 && strings.Contains(lower, term) {
			score += 0.5
		}
	}

	if numericAsk.MatchString(clean) && numberPattern.MatchString(text) {
		score += 2
	}
	return score
}

// Answer 通过深度搜索为问题寻找候选答案
func (s *Searcher) Answer(ctx context.Context, question string, maxPages, depth int) *models.AnswerReport {
	if maxPages <= 0 {
		maxPages = DefaultAnswerPages
	}
	questionType := QuestionType(question)

	search := s.Search(ctx, models.SearchRequest{
		Query:                  question,
		MaxPages:               maxPages,
		Engine:                 s.defaultEngine,
		Depth:                  depth,
		ExtractRelevantContent: true,
	})
	if search.Status != "success" || len(search.Results) == 0 {
		return &models.AnswerReport{
			Status:       "error",
			Message:      "Failed to find relevant information",
			Question:     question,
			QuestionType: questionType,
		}
	}

	candidates := make([]models.AnswerSource, 0, len(search.TopRelevantContent))
	for _, content := range search.TopRelevantContent {
		candidates = append(candidates, models.AnswerSource{
			Text:   content.Text,
			Score:  ScoreCandidate(question, questionType, content.Text, content.RelevanceScore),
			Source: content.Source,
			Title:  content.Title,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxAnswerSources {
		candidates = candidates[:maxAnswerSources]
	}

	report := &models.AnswerReport{
		Status:        "success",
		Question:      question,
		QuestionType:  questionType,
		AnswerSources: candidates,
		SearchMetadata: &models.SearchMetadata{
			PagesVisited:       search.PagesVisited,
			TotalSearchResults: search.TotalSearchResults,
		},
	}
	if len(candidates) > 0 {
		report.Confidence = math.Min(1, candidates[0].Score/10)
	}

	utils.Infof("问题 %q (类型=%s) 找到 %d 个候选答案, 置信度 %.2f", question, questionType, len(candidates), report.Confidence)
	return report
}
