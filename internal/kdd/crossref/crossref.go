// Package crossref resolves DOIs to bibliographic metadata through the
// CrossRef works API.
package crossref

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/earthref/KDD/internal/platform/timeouts"
)

// DefaultBaseURL is the public CrossRef works endpoint.
const DefaultBaseURL = "https://api.crossref.org/works/"

var (
	// ErrNotDOI is returned for references that hold no DOI, such as plain
	// URLs or free text.
	ErrNotDOI = errors.New("reference is not a DOI")
	// ErrNotFound is returned when CrossRef does not know the DOI.
	ErrNotFound = errors.New("reference not found")
)

var doiPattern = regexp.MustCompile(`(?i)\b(10\.\d{4,9}/\S+)`)

// Reference is the bibliographic metadata of a publication.
type Reference struct {
	DOI           string   `json:"doi,omitempty"`
	Title         string   `json:"title,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	CitationCount int      `json:"citation_count"`
	Journal       string   `json:"journal,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	URL           string   `json:"url,omitempty"`
	Year          int      `json:"year,omitempty"`
	Citation      string   `json:"citation,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

// Client queries CrossRef.
type Client struct {
	baseURL    string
	mailto     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithMailto identifies the caller for CrossRef's polite pool.
func WithMailto(mailto string) Option {
	return func(c *Client) {
		c.mailto = strings.TrimSpace(mailto)
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a client against baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeouts.ReferenceLookup},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DOI extracts the DOI of a reference token.
func DOI(reference string) (string, bool) {
	match := doiPattern.FindStringSubmatch(strings.TrimSpace(reference))
	if match == nil {
		return "", false
	}
	return strings.TrimRight(match[1], ".,;"), true
}

// ResolveReference looks up the DOI held by reference.
func (c *Client) ResolveReference(ctx context.Context, reference string) (*Reference, error) {
	doi, ok := DOI(reference)
	if !ok {
		return nil, ErrNotDOI
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse crossref url: %w", err)
	}
	endpoint = endpoint.JoinPath(doi)
	if c.mailto != "" {
		query := endpoint.Query()
		query.Set("mailto", c.mailto)
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build crossref request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crossref lookup %s: %w", doi, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("crossref lookup %s: %w", doi, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("crossref lookup %s: unexpected status %d", doi, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read crossref response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("crossref lookup %s: invalid json", doi)
	}
	return parseWork(gjson.GetBytes(body, "message"), doi), nil
}

func parseWork(work gjson.Result, doi string) *Reference {
	ref := &Reference{
		DOI:           strings.ToUpper(firstNonEmpty(work.Get("DOI").String(), doi)),
		Title:         work.Get("title.0").String(),
		Abstract:      work.Get("abstract").String(),
		CitationCount: int(work.Get("is-referenced-by-count").Int()),
		Journal:       work.Get("container-title.0").String(),
		Publisher:     work.Get("publisher").String(),
		URL:           work.Get("URL").String(),
		Year:          int(work.Get("issued.date-parts.0.0").Int()),
	}
	if ref.Year == 0 {
		ref.Year = int(work.Get("published.date-parts.0.0").Int())
	}
	work.Get("author").ForEach(func(_, author gjson.Result) bool {
		name := strings.TrimSpace(author.Get("given").String() + " " + author.Get("family").String())
		if name == "" {
			name = author.Get("name").String()
		}
		if name != "" {
			ref.Authors = append(ref.Authors, name)
		}
		return true
	})
	work.Get("subject").ForEach(func(_, subject gjson.Result) bool {
		if s := subject.String(); s != "" {
			ref.Keywords = append(ref.Keywords, s)
		}
		return true
	})
	ref.Citation = citation(work, ref)
	return ref
}

// citation formats "Family, G., Family, G. (Year). Title. Journal."
func citation(work gjson.Result, ref *Reference) string {
	var authors []string
	work.Get("author").ForEach(func(_, author gjson.Result) bool {
		family := author.Get("family").String()
		if family == "" {
			return true
		}
		if given := author.Get("given").String(); given != "" {
			family += ", " + string([]rune(given)[0]) + "."
		}
		authors = append(authors, family)
		return true
	})
	var b strings.Builder
	b.WriteString(strings.Join(authors, ", "))
	if ref.Year != 0 {
		fmt.Fprintf(&b, " (%d)", ref.Year)
	}
	if ref.Title != "" {
		if b.Len() > 0 {
			b.WriteString(". ")
		}
		b.WriteString(ref.Title)
	}
	if ref.Journal != "" {
		b.WriteString(". ")
		b.WriteString(ref.Journal)
	}
	if b.Len() > 0 {
		b.WriteString(".")
	}
	return strings.TrimSpace(b.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
