package epub

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MetadataKey names a field of the metadata store.
type MetadataKey int

const (
	KeyTitle MetadataKey = iota + 1
	KeyAuthor
	KeyIdentifier
	KeyLanguage
	KeyDescription
	KeySubject
	KeyDate
	KeyPublisher
	KeyLicense
	KeyGenerator
	KeyTOCName
)

var metadataKeyNames = map[MetadataKey]string{
	KeyTitle:       "title",
	KeyAuthor:      "author",
	KeyIdentifier:  "identifier",
	KeyLanguage:    "lang",
	KeyDescription: "description",
	KeySubject:     "subject",
	KeyDate:        "date",
	KeyPublisher:   "publisher",
	KeyLicense:     "license",
	KeyGenerator:   "generator",
	KeyTOCName:     "toc_name",
}

var metadataKeyAliases = map[string]MetadataKey{
	"title":       KeyTitle,
	"author":      KeyAuthor,
	"creator":     KeyAuthor,
	"identifier":  KeyIdentifier,
	"lang":        KeyLanguage,
	"language":    KeyLanguage,
	"description": KeyDescription,
	"subject":     KeySubject,
	"date":        KeyDate,
	"publisher":   KeyPublisher,
	"license":     KeyLicense,
	"rights":      KeyLicense,
	"generator":   KeyGenerator,
	"toc_name":    KeyTOCName,
}

// ParseMetadataKey resolves a key name, case-insensitively.
func ParseMetadataKey(s string) (MetadataKey, error) {
	if k, ok := metadataKeyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMetadataKey, s)
}

func (k MetadataKey) String() string {
	if name, ok := metadataKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MetadataKey(%d)", int(k))
}

// MultiValued reports whether values of k accumulate.
func (k MetadataKey) MultiValued() bool {
	return k == KeyAuthor || k == KeyDescription || k == KeySubject
}

// MetaOPF is an extra <meta name content> pair of the package document.
type MetaOPF struct {
	Name    string
	Content string
}

// Metadata is the bibliographic record of the book.
type Metadata struct {
	Title        string
	Authors      []string
	Identifier   string
	Language     string
	Descriptions []string
	Subjects     []string
	Date         string // publication date, written as given
	Publisher    string
	License      string
	Generator    string
	TOCName      string
	Modified     time.Time
	Meta         []MetaOPF
}

const (
	defaultLanguage  = "en"
	defaultGenerator = "epubbuilder"
	defaultTOCName   = "Table Of Contents"

	// dateFormat is the W3CDTF form used for dcterms:modified.
	dateFormat = "2006-01-02T15:04:05Z"
)

func newMetadata() Metadata {
	return Metadata{
		Language:  defaultLanguage,
		Generator: defaultGenerator,
		TOCName:   defaultTOCName,
	}
}

// set stores value under k. Multi-valued keys append, and an empty value
// clears them.
func (m *Metadata) set(k MetadataKey, value string) error {
	switch k {
	case KeyTitle:
		m.Title = value
	case KeyAuthor:
		m.Authors = appendOrClear(m.Authors, value)
	case KeyIdentifier:
		m.Identifier = strings.TrimSpace(value)
	case KeyLanguage:
		m.Language = value
	case KeyDescription:
		m.Descriptions = appendOrClear(m.Descriptions, value)
	case KeySubject:
		m.Subjects = appendOrClear(m.Subjects, value)
	case KeyDate:
		m.Date = value
	case KeyPublisher:
		m.Publisher = value
	case KeyLicense:
		m.License = value
	case KeyGenerator:
		m.Generator = value
	case KeyTOCName:
		m.TOCName = value
	default:
		return fmt.Errorf("%w: %v", ErrInvalidMetadataKey, k)
	}
	return nil
}

func appendOrClear(values []string, v string) []string {
	if v == "" {
		return nil
	}
	return append(values, v)
}

// ensureIdentifier fills in a urn:uuid identifier when none was supplied.
func (m *Metadata) ensureIdentifier() {
	if m.Identifier == "" {
		m.Identifier = "urn:uuid:" + uuid.NewString()
	}
}

func (m *Metadata) tocName() string {
	if m.TOCName == "" {
		return defaultTOCName
	}
	return m.TOCName
}

// AddMetadata sets a field by name. See ParseMetadataKey for accepted names.
func (b *Builder) AddMetadata(key, value string) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	k, err := ParseMetadataKey(key)
	if err != nil {
		return err
	}
	return b.meta.set(k, value)
}

// SetMetadata sets a field by typed key.
func (b *Builder) SetMetadata(k MetadataKey, value string) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	return b.meta.set(k, value)
}

func (b *Builder) SetTitle(title string) error { return b.SetMetadata(KeyTitle, title) }
func (b *Builder) AddAuthor(author string) error { return b.SetMetadata(KeyAuthor, author) }
func (b *Builder) SetLanguage(lang string) error { return b.SetMetadata(KeyLanguage, lang) }
func (b *Builder) SetIdentifier(id string) error { return b.SetMetadata(KeyIdentifier, id) }
func (b *Builder) AddDescription(desc string) error { return b.SetMetadata(KeyDescription, desc) }
func (b *Builder) AddSubject(subject string) error { return b.SetMetadata(KeySubject, subject) }
func (b *Builder) SetPublisher(publisher string) error { return b.SetMetadata(KeyPublisher, publisher) }
func (b *Builder) SetLicense(license string) error { return b.SetMetadata(KeyLicense, license) }
func (b *Builder) SetGenerator(generator string) error { return b.SetMetadata(KeyGenerator, generator) }
func (b *Builder) SetTOCName(name string) error { return b.SetMetadata(KeyTOCName, name) }

// SetUUID sets the identifier to the urn form of id.
func (b *Builder) SetUUID(id uuid.UUID) error {
	return b.SetMetadata(KeyIdentifier, id.URN())
}

// SetPublicationDate sets dc:date from t in UTC.
func (b *Builder) SetPublicationDate(t time.Time) error {
	return b.SetMetadata(KeyDate, t.UTC().Format(dateFormat))
}

// SetModifiedDate overrides the modification date, which otherwise is the
// time Generate runs.
func (b *Builder) SetModifiedDate(t time.Time) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	b.meta.Modified = t.UTC()
	return nil
}

// AddMetaOPF adds a <meta name="..." content="..."/> element to the package
// document.
func (b *Builder) AddMetaOPF(name, content string) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	b.meta.Meta = append(b.meta.Meta, MetaOPF{Name: name, Content: content})
	return nil
}

// Metadata returns a copy of the current metadata.
func (b *Builder) Metadata() Metadata {
	m := b.meta
	m.Authors = append([]string(nil), b.meta.Authors...)
	m.Descriptions = append([]string(nil), b.meta.Descriptions...)
	m.Subjects = append([]string(nil), b.meta.Subjects...)
	m.Meta = append([]MetaOPF(nil), b.meta.Meta...)
	return m
}
