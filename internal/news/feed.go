package news

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// rssDoc covers RSS 2.0 documents.
type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
	Creator     string `xml:"creator"` // dc:creator
	GUID        string `xml:"guid"`
}

// atomDoc covers Atom feeds (reddit and most static-site generators).
type atomDoc struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	ID        string     `xml:"id"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// parseFeed decodes an RSS or Atom document into articles. The outlet
// name comes from the feed title, falling back to the feed URL's host.
func parseFeed(feedURL string, data []byte) ([]Article, error) {
	var rss rssDoc
	if err := xml.Unmarshal(data, &rss); err == nil && len(rss.Channel.Items) > 0 {
		return rssArticles(feedURL, rss), nil
	}

	var atom atomDoc
	if err := xml.Unmarshal(data, &atom); err == nil && len(atom.Entries) > 0 {
		return atomArticles(feedURL, atom), nil
	}

	return nil, fmt.Errorf("unrecognized feed format from %s", feedURL)
}

func rssArticles(feedURL string, doc rssDoc) []Article {
	outlet := outletName(feedURL, doc.Channel.Title)
	var out []Article
	for _, item := range doc.Channel.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = strings.TrimSpace(item.GUID)
		}
		if link == "" {
			continue
		}

		author := strings.TrimSpace(item.Creator)
		if author == "" {
			author = strings.TrimSpace(item.Author)
		}

		a := Article{
			URL:         link,
			Title:       titleOrDefault(item.Title),
			Outlet:      outlet,
			Author:      author,
			PublishedAt: parseFeedTime(item.PubDate),
			Text:        strings.TrimSpace(item.Description),
		}
		if a.Text == "" {
			a.Text = a.Title
		}
		out = append(out, a)
	}
	return out
}

func atomArticles(feedURL string, doc atomDoc) []Article {
	outlet := outletName(feedURL, doc.Title)
	var out []Article
	for _, entry := range doc.Entries {
		link := ""
		for _, l := range entry.Links {
			if l.Rel != "self" && l.Href != "" {
				link = l.Href
				break
			}
		}
		if link == "" {
			link = strings.TrimSpace(entry.ID)
		}
		if link == "" {
			continue
		}

		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		text := strings.TrimSpace(entry.Summary)
		if text == "" {
			text = strings.TrimSpace(entry.Content)
		}

		a := Article{
			URL:         link,
			Title:       titleOrDefault(entry.Title),
			Outlet:      outlet,
			Author:      strings.TrimSpace(entry.Author.Name),
			PublishedAt: parseFeedTime(published),
			Text:        text,
		}
		if a.Text == "" {
			a.Text = a.Title
		}
		out = append(out, a)
	}
	return out
}

func titleOrDefault(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Untitled"
	}
	return s
}

func outletName(feedURL, title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}

var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
}

func parseFeedTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range feedTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
