package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

// ContentType identifies the format of a document for the index
type ContentType string

// Content types accepted by the index
const (
	ContentTypePDF       ContentType = "PDF"
	ContentTypeHTML      ContentType = "HTML"
	ContentTypeXML       ContentType = "XML"
	ContentTypeXSLT      ContentType = "XSLT"
	ContentTypeMarkdown  ContentType = "MD"
	ContentTypeCSV       ContentType = "CSV"
	ContentTypeExcel     ContentType = "MS_EXCEL"
	ContentTypeJSON      ContentType = "JSON"
	ContentTypeRTF       ContentType = "RTF"
	ContentTypePPT       ContentType = "PPT"
	ContentTypeWord      ContentType = "MS_WORD"
	ContentTypePlainText ContentType = "PLAIN_TEXT"
)

var extensionContentTypes = map[string]ContentType{
	"pdf":      ContentTypePDF,
	"html":     ContentTypeHTML,
	"htm":      ContentTypeHTML,
	"xml":      ContentTypeXML,
	"xslt":     ContentTypeXSLT,
	"xsl":      ContentTypeXSLT,
	"md":       ContentTypeMarkdown,
	"markdown": ContentTypeMarkdown,
	"csv":      ContentTypeCSV,
	"xlsx":     ContentTypeExcel,
	"xls":      ContentTypeExcel,
	"json":     ContentTypeJSON,
	"rtf":      ContentTypeRTF,
	"pptx":     ContentTypePPT,
	"ppt":      ContentTypePPT,
	"docx":     ContentTypeWord,
	"doc":      ContentTypeWord,
	"txt":      ContentTypePlainText,
}

// ContentTypeFromPath returns the content type implied by the extension of p.
// ok is false for unsupported extensions.
func ContentTypeFromPath(p string) (ContentType, bool) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	ct, ok := extensionContentTypes[ext]
	return ct, ok
}

// Access decides whether a principal may see a document
type Access string

// Access values
const (
	AccessAllow Access = "ALLOW"
	AccessDeny  Access = "DENY"
)

// MemberRelation combines the principals of an access control entry
type MemberRelation string

// Member relations
const (
	MemberRelationAnd MemberRelation = "AND"
	MemberRelationOr  MemberRelation = "OR"
)

// PrincipalUser grants or denies access to a user
type PrincipalUser struct {
	ID             string `json:"id,omitempty"`
	Access         Access `json:"access"`
	MembershipType string `json:"membershipType,omitempty"`
}

// PrincipalGroup grants or denies access to a group
type PrincipalGroup struct {
	Name           string `json:"name,omitempty"`
	Access         Access `json:"access"`
	MembershipType string `json:"membershipType,omitempty"`
}

// Principal is either a user or a group
type Principal struct {
	User  *PrincipalUser  `json:"user,omitempty"`
	Group *PrincipalGroup `json:"group,omitempty"`
}

// AccessControl is one entry of a document access control list
type AccessControl struct {
	MemberRelation MemberRelation `json:"memberRelation"`
	Principals     []Principal    `json:"principals"`
}

// Document is a unit of content observed at the source
type Document struct {
	ID string
	// Path is the location of the document at the source. Its extension
	// names the object uploaded for large documents.
	Path          string
	Title         string
	SourceURI     string
	Attributes    map[string]string
	AccessControl []AccessControl
	ContentType   ContentType
	Content       []byte
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// Size returns the content length in bytes
func (d *Document) Size() int64 {
	return int64(len(d.Content))
}

// checksumMetadata is the part of the metadata covered by the checksum.
// Timestamps are left out so that they alone never cause an update.
type checksumMetadata struct {
	Title         string            `json:"title,omitempty"`
	SourceURI     string            `json:"source_uri,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	AccessControl []AccessControl   `json:"access_control_list,omitempty"`
}

// Checksum fingerprints the identifier, metadata and content of doc
func Checksum(doc *Document) (string, error) {
	meta, err := canonicalJSON(checksumMetadata{
		Title:         doc.Title,
		SourceURI:     doc.SourceURI,
		Attributes:    doc.Attributes,
		AccessControl: doc.AccessControl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata of document %s: %w", doc.ID, err)
	}

	content := sha256.Sum256(doc.Content)
	sum := sha256.Sum256([]byte(doc.ID + "+" + string(meta) + "+" + hex.EncodeToString(content[:])))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON encodes v with object keys sorted at every level
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
