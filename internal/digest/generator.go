package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/bitvia/bitvia/internal/llm"
	"github.com/bitvia/bitvia/internal/metrics"
	"github.com/bitvia/bitvia/internal/news"
)

const (
	maxPerOutlet = 3
	maxDigestLen = 8000

	// DefaultTitle is the stored digest title.
	DefaultTitle = "Bitvia Daily Bitcoin Digest"
)

// relevanceKeywords gate which headlines reach the model.
var relevanceKeywords = []string{
	"bitcoin", "btc", "lightning", "mempool", "hashrate", "miner",
	"mining", "ordinals", "taproot", "halving", "etf",
}

// Claim is one checkable statement the model extracted from its own
// factual section.
type Claim struct {
	Type     string  `json:"type"` // "metric" or "news"
	Text     string  `json:"text"`
	Value    *string `json:"value"`
	Unit     *string `json:"unit"`
	SourceID string  `json:"source_id"`
}

// draft is the first-pass model output.
type draft struct {
	FactsMarkdown   string  `json:"facts_markdown"`
	OpinionMarkdown string  `json:"opinion_markdown"`
	Claims          []Claim `json:"claims"`
}

// verifyResult is the second-pass model output.
type verifyResult struct {
	OK                  bool     `json:"ok"`
	InvalidClaimIndexes []int    `json:"invalid_claim_indexes"`
	Reasons             []string `json:"reasons"`
}

// Generator produces the daily digest from stored metrics and news.
type Generator struct {
	provider llm.Provider
	maxNews  int
}

func NewGenerator(provider llm.Provider, maxNews int) *Generator {
	if maxNews <= 0 {
		maxNews = 10
	}
	return &Generator{provider: provider, maxNews: maxNews}
}

// Generate runs the two-pass draft/verify pipeline and returns the
// final digest markdown for the metrics row's date.
func (g *Generator) Generate(ctx context.Context, m metrics.Row, articles []news.Article) (string, error) {
	articles = filterRelevant(articles, g.maxNews)

	d, err := g.draftDigest(ctx, m, articles)
	if err != nil {
		return "", fmt.Errorf("draft pass: %w", err)
	}

	v, err := g.verifyClaims(ctx, m, articles, d)
	if err != nil {
		return "", fmt.Errorf("verify pass: %w", err)
	}

	facts := d.FactsMarkdown
	if !v.OK && len(v.InvalidClaimIndexes) > 0 {
		pruned, err := g.pruneFacts(ctx, d, v)
		if err != nil {
			return "", fmt.Errorf("prune pass: %w", err)
		}
		if pruned == "" {
			log.Printf("digest: prune produced empty text, keeping original facts")
		} else {
			facts = pruned
		}
	}

	final := fmt.Sprintf("# Bitvia Daily - %s\n\n## Network & News (Facts)\n\n%s\n\n## AI Opinion\n\n%s",
		m.Date, facts, d.OpinionMarkdown)

	if err := checkOutput(final, articles); err != nil {
		return "", err
	}
	return final, nil
}

// filterRelevant keeps Bitcoin-related headlines and caps how many one
// outlet can contribute.
func filterRelevant(articles []news.Article, limit int) []news.Article {
	perOutlet := make(map[string]int)
	var out []news.Article
	for _, a := range articles {
		if !isRelevant(a) {
			continue
		}
		outlet := strings.ToLower(a.Outlet)
		if perOutlet[outlet] >= maxPerOutlet {
			continue
		}
		perOutlet[outlet]++
		out = append(out, a)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func isRelevant(a news.Article) bool {
	title := strings.ToLower(a.Title)
	for _, kw := range relevanceKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

const draftSystem = `You are Bitvia's daily Bitcoin digest writer. Respond with a single JSON object with exactly these fields:
- facts_markdown: 200-500 words of sourced factual reporting derived ONLY from the provided metrics and news list. Start with a 1-2 sentence summary, then a "### Key Metrics" section with bold-labeled bullets, then a "### Top News" section of 3-6 bullets, each ending with a Markdown link [outlet](url) using ONLY provided URLs.
- opinion_markdown: up to 500 words of clearly labeled commentary connecting the metrics to the headlines. No predictions or investment advice. End with: "This is AI-generated and not financial advice."
- claims: an array covering every non-trivial numeric or dated statement in facts_markdown (NOT the opinion). Each claim has fields type ("metric" or "news"), text, value (string or null), unit (string or null), source_id. For metrics use source_id "metrics.<field>"; for news use the exact URL from the inputs.
Only include news directly about Bitcoin or Bitcoin-adjacent infrastructure. Do not invent numbers or URLs.`

func (g *Generator) draftDigest(ctx context.Context, m metrics.Row, articles []news.Article) (*draft, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Metrics for %s:\n%s\n\nNews (up to %d items):\n", m.Date, metricsLine(m), g.maxNews)
	for _, a := range articles {
		fmt.Fprintf(&sb, "- [%s] %s (%s)", a.Outlet, a.Title, a.URL)
		if a.PublishedAt != nil {
			fmt.Fprintf(&sb, " published %s", a.PublishedAt.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: draftSystem},
			{Role: llm.RoleUser, Content: sb.String()},
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	var d draft
	if err := json.Unmarshal([]byte(resp.Content), &d); err != nil {
		return nil, fmt.Errorf("draft output is not the expected JSON: %w", err)
	}
	if d.FactsMarkdown == "" {
		return nil, fmt.Errorf("model returned an empty facts section")
	}
	return &d, nil
}

const verifySystem = `You are a strict fact verifier. Check each claim against the raw inputs only:
- metric claims: source_id must be "metrics.<field>" and the text/value must match the raw value (commas and rounding to one decimal allowed).
- news claims: source_id must equal one of the provided URLs and the text must reflect that headline without new facts.
Respond with a single JSON object: {"ok": bool, "invalid_claim_indexes": [int], "reasons": [string]}.`

func (g *Generator) verifyClaims(ctx context.Context, m metrics.Row, articles []news.Article, d *draft) (*verifyResult, error) {
	input, err := json.Marshal(map[string]any{
		"claims":      d.Claims,
		"metrics_raw": m,
		"news_raw":    articles,
	})
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: verifySystem},
			{Role: llm.RoleUser, Content: string(input)},
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	var v verifyResult
	if err := json.Unmarshal([]byte(resp.Content), &v); err != nil {
		return nil, fmt.Errorf("verify output is not the expected JSON: %w", err)
	}
	return &v, nil
}

const pruneSystem = `Rewrite the factual section by removing or correcting ONLY the invalid claims. Do not introduce any new facts, URLs, or numbers. Maintain the same structure. Return only the corrected facts_markdown as plain markdown text.`

func (g *Generator) pruneFacts(ctx context.Context, d *draft, v *verifyResult) (string, error) {
	input, err := json.Marshal(map[string]any{
		"facts_markdown":        d.FactsMarkdown,
		"invalid_claim_indexes": v.InvalidClaimIndexes,
		"reasons":               v.Reasons,
		"claims":                d.Claims,
	})
	if err != nil {
		return "", err
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: pruneSystem},
			{Role: llm.RoleUser, Content: string(input)},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]]+`)

// checkOutput rejects digests citing URLs that were not in the inputs
// and oversized output, regardless of what the verifier said.
func checkOutput(md string, articles []news.Article) error {
	if len(md) > maxDigestLen {
		return fmt.Errorf("digest output too large (%d bytes)", len(md))
	}

	allowed := make(map[string]bool, len(articles))
	for _, a := range articles {
		allowed[normalizeURL(a.URL)] = true
	}

	for _, raw := range urlPattern.FindAllString(md, -1) {
		if !allowed[normalizeURL(raw)] {
			return fmt.Errorf("digest cites URL not present in inputs: %s", raw)
		}
	}
	return nil
}

// normalizeURL strips fragments and common tracking parameters so link
// equality survives feed decoration.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		k := strings.ToLower(key)
		if strings.HasPrefix(k, "utm_") || k == "ref" || k == "source" {
			q.Del(key)
		}
	}
	if len(q) == 0 {
		u.RawQuery = ""
	} else {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			for _, v := range q[k] {
				parts = append(parts, k+"="+v)
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}
	return u.String()
}

func metricsLine(m metrics.Row) string {
	fmtOpt := func(v any) string {
		switch x := v.(type) {
		case *int64:
			if x == nil {
				return "unknown"
			}
			return fmt.Sprintf("%d", *x)
		case *float64:
			if x == nil {
				return "unknown"
			}
			return fmt.Sprintf("%.2f", *x)
		}
		return "unknown"
	}
	return fmt.Sprintf("date=%s; mempool_tx=%s; mempool_bytes=%s; avg_block_s=%s; fee_sat_vb=%s",
		m.Date, fmtOpt(m.MempoolTx), fmtOpt(m.MempoolBytes),
		fmtOpt(m.AvgBlockIntervalSec), fmtOpt(m.MedianFeeSatPerVB))
}
