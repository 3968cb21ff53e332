package services

import (
	"strings"

	"newsfeed/internal/models"
	"newsfeed/internal/utils"
)

// 内容前多少个字符已出现在描述里时视为重复
const contentDedupPrefix = 30

// SummaryService 用文章已有的字段拼接摘要，不调用外部模型
type SummaryService struct{}

func NewSummaryService() *SummaryService {
	return &SummaryService{}
}

// SummarizeArticle 已有摘要直接返回；否则按 描述+正文+来源 > 正文 > 标题模板 的顺序生成。
// 没有任何可用文本时 ok 为 false。
func (s *SummaryService) SummarizeArticle(article *models.Article) (summary string, ok bool) {
	if article == nil {
		return "", false
	}
	if article.Summary != nil && *article.Summary != "" {
		return *article.Summary, true
	}

	description := deref(article.Description)
	content := deref(article.Content)
	if article.Title == "" && description == "" && content == "" {
		return "", false
	}

	if description != "" {
		var b strings.Builder
		b.WriteString(description)
		b.WriteString("\n\n")
		if content != "" && !strings.Contains(description, runePrefix(content, contentDedupPrefix)) {
			b.WriteString(content)
			b.WriteString("\n\n")
		}
		if source := deref(article.Source); source != "" {
			b.WriteString("Source: ")
			b.WriteString(source)
		}
		return strings.TrimSpace(b.String()), true
	}

	if content != "" {
		return content, true
	}

	return "This article covers " + article.Title + ". The full content is available at the original source.", true
}

// GenerateNewsForInterests 把兴趣拼成 NewsAPI 的 OR 查询
func (s *SummaryService) GenerateNewsForInterests(interests []string) (string, bool) {
	if len(interests) == 0 {
		return "", false
	}
	return strings.Join(interests, " OR "), true
}

// RenderHTML 摘要转成可直接展示的 HTML
func (s *SummaryService) RenderHTML(summary string) string {
	if summary == "" {
		return ""
	}
	return utils.RenderMarkdown(summary)
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
