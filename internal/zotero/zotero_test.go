package zotero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pdfAttachment() Attachment {
	return Attachment{Data: AttachmentData{ContentType: "application/pdf"}}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		expected bool
	}{
		{
			name: "journal article with URL",
			item: Item{Data: ItemData{
				ItemType: "journalArticle",
				Title:    "Observation of Gravitational Waves",
				URL:      "https://example.org/paper",
			}},
			expected: true,
		},
		{
			name: "report with PDF attachment and no URL",
			item: Item{
				Data:        ItemData{ItemType: "report", Title: "Detector Characterization Report"},
				Attachments: []Attachment{pdfAttachment()},
			},
			expected: true,
		},
		{
			name: "webpage type is excluded even with title and URL",
			item: Item{Data: ItemData{
				ItemType: "webpage",
				Title:    "LIGO Homepage",
				URL:      "https://www.ligo.org",
			}},
			expected: false,
		},
		{
			name: "missing title",
			item: Item{Data: ItemData{
				ItemType: "journalArticle",
				URL:      "https://example.org/paper",
			}},
			expected: false,
		},
		{
			name: "whitespace-only title",
			item: Item{Data: ItemData{
				ItemType: "journalArticle",
				Title:    "   ",
				URL:      "https://example.org/paper",
			}},
			expected: false,
		},
		{
			name: "no URL and no PDF attachment",
			item: Item{
				Data:        ItemData{ItemType: "book", Title: "Gravitational Physics"},
				Attachments: []Attachment{{Data: AttachmentData{ContentType: "image/png"}}},
			},
			expected: false,
		},
		{
			name: "thesis with PDF",
			item: Item{
				Data:        ItemData{ItemType: "thesis", Title: "Noise Studies"},
				Attachments: []Attachment{pdfAttachment()},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.item); got != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.item.Data.ItemType, got, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	item := Item{
		Key: "ABC123",
		Data: ItemData{
			ItemType:     "journalArticle",
			Title:        "Observation of Gravitational Waves",
			Date:         "2016-02-11",
			URL:          "https://example.org/paper",
			AbstractNote: "First direct detection.",
			Creators: []Creator{
				{CreatorType: "author", FirstName: "B. P.", LastName: "Abbott"},
				{CreatorType: "editor", FirstName: "Some", LastName: "Editor"},
				{CreatorType: "author", FirstName: "R.", LastName: "Abbott"},
			},
		},
	}

	r := Normalize(item)
	if r.ID != "ABC123" {
		t.Errorf("Expected ID ABC123, got %q", r.ID)
	}
	if r.Authors != "B. P. Abbott, R. Abbott" {
		t.Errorf("Expected editors excluded from authors, got %q", r.Authors)
	}
	if r.Year != 2016 {
		t.Errorf("Expected year 2016, got %d", r.Year)
	}
	if r.Source != "Zotero" {
		t.Errorf("Expected source Zotero, got %q", r.Source)
	}
}

func TestJoinAuthors(t *testing.T) {
	tests := []struct {
		name     string
		creators []Creator
		expected string
	}{
		{
			name:     "no creators",
			creators: nil,
			expected: "Unknown",
		},
		{
			name:     "only non-authors",
			creators: []Creator{{CreatorType: "editor", LastName: "Editor"}},
			expected: "Unknown",
		},
		{
			name:     "last name only",
			creators: []Creator{{CreatorType: "author", LastName: "Abbott"}},
			expected: "Abbott",
		},
		{
			name: "multiple authors joined",
			creators: []Creator{
				{CreatorType: "author", FirstName: "A.", LastName: "Smith"},
				{CreatorType: "author", FirstName: "B.", LastName: "Johnson"},
			},
			expected: "A. Smith, B. Johnson",
		},
		{
			name:     "author without last name skipped",
			creators: []Creator{{CreatorType: "author", FirstName: "Anonymous"}},
			expected: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinAuthors(tt.creators); got != tt.expected {
				t.Errorf("joinAuthors = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestYearOf(t *testing.T) {
	tests := []struct {
		date     string
		expected int
	}{
		{"2016-02-11", 2016},
		{"2024", 2024},
		{"", 0},
		{"circa 2000", 0},
		{"99", 0},
	}

	for _, tt := range tests {
		if got := yearOf(tt.date); got != tt.expected {
			t.Errorf("yearOf(%q) = %d, want %d", tt.date, got, tt.expected)
		}
	}
}

func TestToChunks(t *testing.T) {
	records := []Record{
		{
			ID:       "K1",
			Title:    "Observation of Gravitational Waves",
			Authors:  "B. P. Abbott",
			Year:     2016,
			URL:      "https://example.org/paper",
			Abstract: "First direct detection.",
			ItemType: "journalArticle",
			Source:   "Zotero",
		},
		{
			ID:       "K2",
			Title:    "Untimed Report",
			ItemType: "report",
			Source:   "Zotero",
		},
	}

	chunks := ToChunks(records)
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}

	first := chunks[0]
	if first.ID != "zotero-K1" {
		t.Errorf("Expected id zotero-K1, got %q", first.ID)
	}
	if first.ChunkIndex != 0 {
		t.Errorf("Expected chunk index 0, got %d", first.ChunkIndex)
	}
	want := "Title: Observation of Gravitational Waves\n\nAuthors: B. P. Abbott\n\nAbstract: First direct detection.\n\nYear: 2016"
	if first.Content != want {
		t.Errorf("Unexpected chunk content:\n%s\nwant:\n%s", first.Content, want)
	}
	if first.Metadata["item_type"] != "journalArticle" || first.Metadata["zotero_id"] != "K1" {
		t.Errorf("Unexpected metadata: %+v", first.Metadata)
	}

	// Empty fields produce no empty labeled sections.
	second := chunks[1]
	if strings.Contains(second.Content, "Authors:") || strings.Contains(second.Content, "Year:") {
		t.Errorf("Expected absent fields to be skipped, got:\n%s", second.Content)
	}
}

func TestSyncLive(t *testing.T) {
	items := []Item{
		{
			Key: "REAL1",
			Data: ItemData{
				ItemType: "journalArticle",
				Title:    "A Real Paper",
				Date:     "2022-05-01",
				URL:      "https://example.org/real",
			},
		},
		{
			Key:  "SKIP1",
			Data: ItemData{ItemType: "webpage", Title: "A Webpage", URL: "https://example.org/web"},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/1234/items" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("Expected limit=25, got %q", got)
		}
		if err := json.NewEncoder(w).Encode(items); err != nil {
			t.Fatalf("encoding test response: %v", err)
		}
	}))
	defer srv.Close()

	c := NewClient("test-key", "1234")
	c.BaseURL = srv.URL

	records, live := c.Sync(context.Background(), 25)
	if !live {
		t.Error("Expected live=true from a healthy backend")
	}
	if len(records) != 1 || records[0].ID != "REAL1" {
		t.Errorf("Expected the webpage filtered out, got %+v", records)
	}
	if records[0].Year != 2022 {
		t.Errorf("Expected year 2022, got %d", records[0].Year)
	}
}

func TestSyncFallsBackToMocks(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Client
	}{
		{
			name: "server error",
			setup: func(t *testing.T) *Client {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
				t.Cleanup(srv.Close)
				c := NewClient("k", "g")
				c.BaseURL = srv.URL
				return c
			},
		},
		{
			name: "malformed body",
			setup: func(t *testing.T) *Client {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if _, err := w.Write([]byte("not json")); err != nil {
						t.Fatalf("writing test response: %v", err)
					}
				}))
				t.Cleanup(srv.Close)
				c := NewClient("k", "g")
				c.BaseURL = srv.URL
				return c
			},
		},
		{
			name: "unreachable host",
			setup: func(t *testing.T) *Client {
				c := NewClient("k", "g")
				c.BaseURL = "http://127.0.0.1:1"
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.setup(t)
			records, live := c.Sync(context.Background(), 10)
			if live {
				t.Error("Expected live=false on failure")
			}
			if len(records) != 3 {
				t.Fatalf("Expected 3 mock records, got %d", len(records))
			}
			if records[0].ID != "mock-zotero-1" {
				t.Errorf("Expected the fixed mock set, got %+v", records[0])
			}
		})
	}
}
