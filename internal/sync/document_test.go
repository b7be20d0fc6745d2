package sync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/connector-lifecycle-server/internal/sync"
)

func baseDocument() sync.Document {
	return sync.Document{
		ID:         "docs/guide.md",
		Path:       "docs/guide.md",
		Title:      "guide.md",
		SourceURI:  "https://example.com/docs/guide.md",
		Attributes: map[string]string{"team": "search", "lang": "en"},
		AccessControl: []sync.AccessControl{{
			MemberRelation: sync.MemberRelationOr,
			Principals: []sync.Principal{
				{User: &sync.PrincipalUser{ID: "alice@example.com", Access: sync.AccessAllow}},
			},
		}},
		Content:       []byte("# Guide"),
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastUpdatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	base := baseDocument()
	want, err := sync.Checksum(&base)
	require.NoError(t, err)
	assert.Len(t, want, 64)

	tests := []struct {
		name    string
		mutate  func(d *sync.Document)
		changed bool
	}{
		{
			name:    "timestamps are ignored",
			mutate:  func(d *sync.Document) { d.CreatedAt = time.Now(); d.LastUpdatedAt = time.Now() },
			changed: false,
		},
		{
			name:    "attribute map is order independent",
			mutate:  func(d *sync.Document) { d.Attributes = map[string]string{"lang": "en", "team": "search"} },
			changed: false,
		},
		{
			name:    "content type is ignored",
			mutate:  func(d *sync.Document) { d.ContentType = sync.ContentTypeMarkdown },
			changed: false,
		},
		{
			name:    "content",
			mutate:  func(d *sync.Document) { d.Content = []byte("# Guide v2") },
			changed: true,
		},
		{
			name:    "title",
			mutate:  func(d *sync.Document) { d.Title = "Guide" },
			changed: true,
		},
		{
			name:    "attribute value",
			mutate:  func(d *sync.Document) { d.Attributes = map[string]string{"team": "search", "lang": "de"} },
			changed: true,
		},
		{
			name: "access control",
			mutate: func(d *sync.Document) {
				d.AccessControl[0].Principals[0].User.Access = sync.AccessDeny
			},
			changed: true,
		},
		{
			name:    "id",
			mutate:  func(d *sync.Document) { d.ID = "docs/other.md" },
			changed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := baseDocument()
			tt.mutate(&doc)
			got, err := sync.Checksum(&doc)
			require.NoError(t, err)
			if tt.changed {
				assert.NotEqual(t, want, got)
			} else {
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestChecksum_EmptyMetadata(t *testing.T) {
	t.Parallel()

	a := sync.Document{ID: "a", Content: []byte("x")}
	b := sync.Document{ID: "a", Content: []byte("x"), Attributes: map[string]string{}}

	sa, err := sync.Checksum(&a)
	require.NoError(t, err)
	sb, err := sync.Checksum(&b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestContentTypeFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		expected sync.ContentType
		ok       bool
	}{
		{path: "report.PDF", expected: sync.ContentTypePDF, ok: true},
		{path: "docs/index.htm", expected: sync.ContentTypeHTML, ok: true},
		{path: "README.markdown", expected: sync.ContentTypeMarkdown, ok: true},
		{path: "data/sheet.xlsx", expected: sync.ContentTypeExcel, ok: true},
		{path: "slides.pptx", expected: sync.ContentTypePPT, ok: true},
		{path: "notes.txt", expected: sync.ContentTypePlainText, ok: true},
		{path: "transform.xsl", expected: sync.ContentTypeXSLT, ok: true},
		{path: "image.png", ok: false},
		{path: "Makefile", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			got, ok := sync.ContentTypeFromPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
