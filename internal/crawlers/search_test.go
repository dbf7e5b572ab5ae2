package crawlers

import (
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/models"
)

const bingResults = `<html><body><ol id="b_results">
<li class="b_algo"><h2><a href="https://a.test/one">One</a></h2></li>
<li class="b_algo"><h2><a href="https://b.test/two">Two</a></h2></li>
<li class="b_algo"><h2><a href="https://a.test/one">One again</a></h2></li>
</ol></body></html>`

const pageOne = `<html><head><title>Page One</title></head><body>
<p>Golang makes concurrency simple with goroutines and channels.</p>
<p>Short one</p>
<p>This paragraph talks about golang tooling only.</p>
<p>Nothing relevant in this particular paragraph here.</p>
<script>var golang = "concurrency golang golang";</script>
<a href="/deep">Golang Deep Dive</a>
<a href="mailto:golang@a.test">golang mail</a>
<a href="https://c.test/other">Concurrency patterns</a>
<a href="https://d.test/third">Golang third</a>
</body></html>`

func mustParse(t *testing.T, source string) *goquery.Document {
	t.Helper()
	doc, err := analyzer.Parse(source)
	require.NoError(t, err)
	return doc
}

func TestURLQueue(t *testing.T) {
	q := NewURLQueue(1)

	require.NoError(t, q.Push(models.URLItem{URL: "https://a.test/1"}))
	require.NoError(t, q.Push(models.URLItem{URL: "https://a.test/2"}))
	assert.Error(t, q.Push(models.URLItem{URL: "ftp://a.test/file"}), "非http协议应被拒绝")
	assert.Error(t, q.Push(models.URLItem{URL: "https://a.test/deep", Depth: 2}), "超过最大深度应被拒绝")

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "https://a.test/1", item.URL)
	q.MarkVisited(item.URL)
	assert.True(t, q.IsVisited("https://a.test/1"))

	added := q.PushNext(
		models.URLItem{URL: "https://a.test/1-a", Depth: 1},
		models.URLItem{URL: "https://a.test/1", Depth: 1},
		models.URLItem{URL: "https://a.test/1-b", Depth: 1},
	)
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, q.PendingCount())

	var order []string
	for {
		item, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, item.URL)
	}
	assert.Equal(t, []string{"https://a.test/1-a", "https://a.test/1-b", "https://a.test/2"}, order)
	assert.Equal(t, 0, q.PendingCount())
}

func TestSearchURL(t *testing.T) {
	tests := []struct {
		engine   models.SearchEngine
		expected string
	}{
		{models.EngineGoogle, "https://www.google.com/search?q=go+lang%3F"},
		{models.EngineBing, "https://www.bing.com/search?q=go+lang%3F"},
		{models.EngineDuckDuckGo, "https://duckduckgo.com/?q=go+lang%3F"},
		{models.SearchEngine("yahoo"), "https://www.google.com/search?q=go+lang%3F"},
	}
	for _, tt := range tests {
		t.Run(string(tt.engine), func(t *testing.T) {
			assert.Equal(t, tt.expected, SearchURL(tt.engine, "go lang?"))
		})
	}
}

func TestExtractSearchResults(t *testing.T) {
	t.Run("google", func(t *testing.T) {
		doc := mustParse(t, `<div id="search">
<div class="g"><div class="yuRUbf"><a href="https://a.test/one"><h3 class="LC20lb">First</h3></a></div></div>
<div class="g"><div class="yuRUbf"><a href="https://b.test/two"></a></div></div>
<div class="g"><a href="/url-relative"><h3 class="LC20lb">Relative</h3></a></div>
<div class="g"><h3 class="LC20lb">No anchor</h3></div>
</div>`)
		hits := ExtractSearchResults(doc, models.EngineGoogle, "https://www.google.com/search?q=x")
		assert.Equal(t, []SearchHit{
			{URL: "https://a.test/one", Title: "First"},
			{URL: "https://b.test/two", Title: "No title"},
			{URL: "https://www.google.com/url-relative", Title: "Relative"},
		}, hits)
	})

	t.Run("bing去重", func(t *testing.T) {
		hits := ExtractSearchResults(mustParse(t, bingResults), models.EngineBing, "https://www.bing.com/search?q=x")
		assert.Equal(t, []SearchHit{
			{URL: "https://a.test/one", Title: "One"},
			{URL: "https://b.test/two", Title: "Two"},
		}, hits)
	})

	t.Run("ddg忽略非http链接", func(t *testing.T) {
		doc := mustParse(t, `<div>
<a class="result__a" href="https://a.test/ddg">DDG</a>
<a class="result__a" href="javascript:void(0)">Script</a>
</div>`)
		hits := ExtractSearchResults(doc, models.EngineDuckDuckGo, "https://duckduckgo.com/?q=x")
		assert.Equal(t, []SearchHit{{URL: "https://a.test/ddg", Title: "DDG"}}, hits)
	})
}

func TestShouldFollowLink(t *testing.T) {
	tests := []struct {
		href     string
		expected bool
	}{
		{"https://a.test", true},
		{"http://a.test", true},
		{"/path", true},
		{"javascript:void(0)", false},
		{"mailto:a@b.c", false},
		{"#anchor", false},
		{"relative/path", false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldFollowLink(tt.href))
		})
	}
}

func TestRelevantLinks(t *testing.T) {
	doc := mustParse(t, pageOne)
	links := RelevantLinks(doc, "https://a.test/one", []string{"golang", "concurrency"}, 2)

	assert.Equal(t, []models.URLItem{
		{URL: "https://a.test/deep", Depth: 1, SourceURL: "https://a.test/one", LinkText: "golang deep dive"},
		{URL: "https://c.test/other", Depth: 1, SourceURL: "https://a.test/one", LinkText: "concurrency patterns"},
	}, links)
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"What", "is", "golang"}, QueryTerms("What is golang?"))
	assert.Equal(t, []string{"go", "vs", "rust"}, QueryTerms(`  "go" vs  rust... `))
	assert.Nil(t, QueryTerms(" ?! "))
}

func TestRelevantParagraphs(t *testing.T) {
	t.Run("按命中词数排序并过滤短段落", func(t *testing.T) {
		paragraphs := RelevantParagraphs(mustParse(t, pageOne), []string{"golang", "concurrency"})
		assert.Equal(t, []models.RelevantParagraph{
			{Text: "Golang makes concurrency simple with goroutines and channels.", RelevanceScore: 2},
			{Text: "This paragraph talks about golang tooling only.", RelevanceScore: 1},
		}, paragraphs)
	})

	t.Run("最多三段", func(t *testing.T) {
		doc := mustParse(t, `<body>
<p>golang paragraph number one is here</p>
<p>golang paragraph number two is here</p>
<p>golang concurrency paragraph number three</p>
<p>golang paragraph number four is here</p>
</body>`)
		paragraphs := RelevantParagraphs(doc, []string{"golang", "concurrency"})
		require.Len(t, paragraphs, 3)
		assert.Equal(t, 2, paragraphs[0].RelevanceScore)
		assert.Equal(t, "golang paragraph number one is here", paragraphs[1].Text)
	})

	t.Run("没有块级元素时按空行切分", func(t *testing.T) {
		doc := mustParse(t, "<body><div>first block about golang syntax\n\nsecond block about golang concurrency</div></body>")
		paragraphs := RelevantParagraphs(doc, []string{"concurrency"})
		assert.Equal(t, []models.RelevantParagraph{
			{Text: "second block about golang concurrency", RelevanceScore: 1},
		}, paragraphs)
	})
}

func searchFixture() *mapSource {
	pages := map[string]string{
		"https://a.test/one":  pageOne,
		"https://a.test/deep": `<html><head><title>Deep</title></head><body><p>Deep golang concurrency article with lots of detail.</p></body></html>`,
		"https://b.test/two":  `<html><body><p>Concurrency in other languages is compared here.</p></body></html>`,
	}
	pages[SearchURL(models.EngineBing, "golang concurrency")] = bingResults
	return newMapSource(pages)
}

func TestSearchFollowsRelevantLinks(t *testing.T) {
	source := searchFixture()
	searcher := NewSearcher(source, "bing")

	report := searcher.Search(context.Background(), models.SearchRequest{
		Query:                  "golang concurrency",
		MaxPages:               5,
		Depth:                  2,
		ExtractRelevantContent: true,
	})

	require.Equal(t, "success", report.Status)
	assert.Equal(t, models.EngineBing, report.SearchEngine)
	assert.Equal(t, 2, report.TotalSearchResults)
	assert.Equal(t, 3, report.PagesVisited)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "https://a.test/one", report.Results[0].URL)
	assert.Equal(t, "Page One", report.Results[0].Title)
	assert.Empty(t, report.Results[0].Source)

	assert.Equal(t, "https://a.test/deep", report.Results[1].URL)
	assert.Equal(t, "Link from https://a.test/one", report.Results[1].Source)
	assert.Equal(t, "golang deep dive", report.Results[1].LinkText)

	assert.Equal(t, "https://b.test/two", report.Results[2].URL)
	assert.Equal(t, "Two", report.Results[2].Title, "页面没有标题时使用搜索结果标题")

	assert.Equal(t, []string{
		SearchURL(models.EngineBing, "golang concurrency"),
		"https://a.test/one",
		"https://a.test/deep",
		"https://c.test/other",
		"https://b.test/two",
	}, source.loads())

	require.Len(t, report.TopRelevantContent, 4)
	assert.Equal(t, 2, report.TopRelevantContent[0].RelevanceScore)
	assert.Equal(t, "https://a.test/one", report.TopRelevantContent[0].Source)
	assert.Equal(t, "https://a.test/deep", report.TopRelevantContent[1].Source)
	assert.Equal(t, 1, report.TopRelevantContent[3].RelevanceScore)
}

func TestSearchDepthOne(t *testing.T) {
	searcher := NewSearcher(searchFixture(), "bing")
	report := searcher.Search(context.Background(), models.SearchRequest{
		Query:    "golang concurrency",
		MaxPages: 1,
		Depth:    1,
	})

	require.Equal(t, "success", report.Status)
	assert.Equal(t, 1, report.TotalSearchResults)
	assert.Equal(t, 1, report.PagesVisited)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Results[0].RelevantContent)
	assert.Nil(t, report.TopRelevantContent)
}

func TestSearchFailure(t *testing.T) {
	searcher := NewSearcher(newMapSource(nil), "ddg")
	report := searcher.Search(context.Background(), models.SearchRequest{Query: "nothing"})

	assert.Equal(t, "error", report.Status)
	assert.Contains(t, report.Error, "加载搜索结果页失败")
	assert.Equal(t, models.EngineDuckDuckGo, report.SearchEngine)
	assert.Empty(t, report.Results)
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewSearcher(searchFixture(), "bing").Search(ctx, models.SearchRequest{Query: "golang concurrency", Depth: 2})
	assert.Equal(t, "error", report.Status)
	assert.Contains(t, report.Error, context.Canceled.Error())
	assert.Zero(t, report.PagesVisited)
}

func TestQuestionType(t *testing.T) {
	tests := []struct {
		question string
		expected string
	}{
		{"What is Go?", "what"},
		{"how many moons?", "how"},
		{"Is it raining", "is"},
		{"Does it work", "does"},
		{"Do you know", "do"},
		{"Whatever happened", "unknown"},
		{"Tell me about Go", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuestionType(tt.question))
		})
	}
}

func TestScoreCandidate(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		text      string
		relevance int
		expected  float64
	}{
		{"what类答案特征", "What is Go?", "Go is a programming language", 1, 4},
		{"数量类问题出现数字", "How many moons does Jupiter have?", "Jupiter has 95 known moons", 2, 5},
		{"why类答案特征", "Why is the sky blue?", "The sky looks blue because of Rayleigh scattering", 2, 5.5},
		{"未知类型只计问题词", "Tell me about Go", "This is about go", 1, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreCandidate(tt.question, QuestionType(tt.question), tt.text, tt.relevance)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestAnswer(t *testing.T) {
	question := "Why is golang popular?"
	pages := map[string]string{
		"https://a.test/why": `<html><body><p>Golang is popular because of its simple concurrency model.</p></body></html>`,
	}
	pages[SearchURL(models.EngineBing, question)] = `<li class="b_algo"><h2><a href="https://a.test/why">Why</a></h2></li>`
	source := newMapSource(pages)

	report := NewSearcher(source, "bing").Answer(context.Background(), question, 0, 1)
	require.Equal(t, "success", report.Status)
	assert.Equal(t, "why", report.QuestionType)
	require.Len(t, report.AnswerSources, 1)
	assert.InDelta(t, 7, report.AnswerSources[0].Score, 1e-9)
	assert.Equal(t, "https://a.test/why", report.AnswerSources[0].Source)
	assert.Equal(t, "Why", report.AnswerSources[0].Title)
	assert.InDelta(t, 0.7, report.Confidence, 1e-9)
	assert.Equal(t, &models.SearchMetadata{PagesVisited: 1, TotalSearchResults: 1}, report.SearchMetadata)

	t.Run("没有结果", func(t *testing.T) {
		report := NewSearcher(newMapSource(nil), "bing").Answer(context.Background(), question, 3, 1)
		assert.Equal(t, "error", report.Status)
		assert.Equal(t, "Failed to find relevant information", report.Message)
		assert.Equal(t, "why", report.QuestionType)
	})
}
