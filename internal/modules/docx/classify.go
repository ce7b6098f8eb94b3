package docx

import "strings"

// EntryCategory is the role of a package entry, decided once per entry.
type EntryCategory int

const (
	EntryOther EntryCategory = iota
	EntryEmbedding
	EntryMedia
	EntryComments
	EntryDocumentBody
	EntryCoreMetadata
	EntryAppMetadata
)

func (c EntryCategory) String() string {
	switch c {
	case EntryEmbedding:
		return "embedding"
	case EntryMedia:
		return "media"
	case EntryComments:
		return "comments"
	case EntryDocumentBody:
		return "document_body"
	case EntryCoreMetadata:
		return "core_metadata"
	case EntryAppMetadata:
		return "app_metadata"
	default:
		return "other"
	}
}

// Package part paths inside a WordprocessingML container.
const (
	embeddingsPrefix = "word/embeddings/"
	mediaPrefix      = "word/media/"
	commentsPart     = "word/comments.xml"
	documentPart     = "word/document.xml"
	corePropsPart    = "docProps/core.xml"
	appPropsPart     = "docProps/app.xml"
)

// Classify maps an entry path to its category.
func Classify(name string) EntryCategory {
	switch {
	case strings.HasPrefix(name, embeddingsPrefix):
		return EntryEmbedding
	case strings.HasPrefix(name, mediaPrefix):
		return EntryMedia
	}
	switch name {
	case commentsPart:
		return EntryComments
	case documentPart:
		return EntryDocumentBody
	case corePropsPart:
		return EntryCoreMetadata
	case appPropsPart:
		return EntryAppMetadata
	}
	return EntryOther
}
