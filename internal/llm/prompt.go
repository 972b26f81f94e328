package llm

import "fmt"

// PromptVersion tags summaries produced with the prompt below.
const PromptVersion = "news-v1"

const newsSystemPrompt = `You are a professional news analyst.
Find the most recent news articles about the keyword you are given and summarize each one.

Rules:
1. Only include articles you can attribute to a real publisher with a working URL
2. Keep titles as published
3. published_at must be formatted 'YYYY-MM-DD HH:MM' in UTC
4. Each summary is 2-3 neutral sentences, no speculation

Output as JSON only, no other text:
[
  {
    "title": "article title",
    "source_name": "publisher name",
    "published_at": "YYYY-MM-DD HH:MM",
    "url": "https://...",
    "summary": "short summary"
  }
]`

func newsUserPrompt(keyword string, maxResults int) string {
	return fmt.Sprintf("Keyword: %s\nReturn at most %d articles.", keyword, maxResults)
}
