package model

import "strings"

// PageMetadata is the document-level metadata of one page.
// Every scalar field is first-writer-wins: once set, later candidates are
// ignored. Callers feed higher-priority sources first.
type PageMetadata struct {
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// SetTitle sets Title unless it is already set. Blank values are ignored.
func (m *PageMetadata) SetTitle(v string) { setOnce(&m.Title, v) }

// SetAuthor sets Author unless it is already set.
func (m *PageMetadata) SetAuthor(v string) { setOnce(&m.Author, v) }

// SetDate sets Date unless it is already set.
func (m *PageMetadata) SetDate(v string) { setOnce(&m.Date, v) }

// SetDescription sets Description unless it is already set.
func (m *PageMetadata) SetDescription(v string) { setOnce(&m.Description, v) }

func setOnce(field *string, v string) {
	v = strings.TrimSpace(v)
	if *field != "" || v == "" {
		return
	}
	*field = v
}

// AddTag appends tag unless an equal tag is already present.
func (m *PageMetadata) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	for _, t := range m.Tags {
		if t == tag {
			return
		}
	}
	m.Tags = append(m.Tags, tag)
}

// AddKeywords splits a comma separated keyword list and adds each entry.
func (m *PageMetadata) AddKeywords(keywords string) {
	for _, k := range strings.Split(keywords, ",") {
		m.AddTag(k)
	}
}

// IsEmpty reports whether no field has been set.
func (m *PageMetadata) IsEmpty() bool {
	return m.Title == "" && !m.hasDetails()
}

func (m *PageMetadata) hasDetails() bool {
	return m.Author != "" || m.Date != "" || m.Description != "" || len(m.Tags) > 0
}

// Format renders the metadata block placed in front of a converted body:
//
//	# Title
//
//	---
//	Author: ...
//	Date: ...
//	Description: ...
//	Tags: a, b
//	---
//
// Absent fields are omitted. The --- block is omitted when it would be empty.
func (m *PageMetadata) Format() string {
	var b strings.Builder
	if m.Title != "" {
		b.WriteString("# ")
		b.WriteString(m.Title)
		b.WriteString("\n\n")
	}
	if !m.hasDetails() {
		return b.String()
	}

	b.WriteString("---\n")
	writeField := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	writeField("Author", m.Author)
	writeField("Date", m.Date)
	writeField("Description", m.Description)
	writeField("Tags", strings.Join(m.Tags, ", "))
	b.WriteString("---\n\n")

	return b.String()
}
