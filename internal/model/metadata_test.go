package model

import (
	"reflect"
	"testing"
)

func TestPageMetadataFirstWriterWins(t *testing.T) {
	t.Parallel()

	var m PageMetadata
	m.SetTitle("  ")
	m.SetTitle("From OG")
	m.SetTitle("From title tag")
	m.SetAuthor("Ada")
	m.SetAuthor("Grace")
	m.SetDate("2024-01-02")
	m.SetDescription("first")
	m.SetDescription("second")

	want := PageMetadata{Title: "From OG", Author: "Ada", Date: "2024-01-02", Description: "first"}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("got %+v, want %+v", m, want)
	}
}

func TestPageMetadataTags(t *testing.T) {
	t.Parallel()

	var m PageMetadata
	m.AddTag("go")
	m.AddKeywords(" web , go,, markdown ")
	m.AddTag("web")

	want := []string{"go", "web", "markdown"}
	if !reflect.DeepEqual(m.Tags, want) {
		t.Errorf("got %v, want %v", m.Tags, want)
	}
}

func TestPageMetadataFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta PageMetadata
		want string
	}{
		{
			name: "empty",
			meta: PageMetadata{},
			want: "",
		},
		{
			name: "title only",
			meta: PageMetadata{Title: "Hello"},
			want: "# Hello\n\n",
		},
		{
			name: "all fields",
			meta: PageMetadata{
				Title:       "Hello",
				Author:      "Ada",
				Date:        "2024-01-02",
				Description: "A page",
				Tags:        []string{"a", "b"},
			},
			want: "# Hello\n\n---\nAuthor: Ada\nDate: 2024-01-02\nDescription: A page\nTags: a, b\n---\n\n",
		},
		{
			name: "details without title",
			meta: PageMetadata{Author: "Ada"},
			want: "---\nAuthor: Ada\n---\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.meta.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
			if tt.meta.IsEmpty() != (tt.want == "") {
				t.Errorf("IsEmpty() = %v for %+v", tt.meta.IsEmpty(), tt.meta)
			}
		})
	}
}
