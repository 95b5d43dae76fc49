package filter

import (
	"testing"

	"github.com/amishk599/jobradar/internal/model"
)

func posting(title string) model.Posting {
	return model.Posting{Title: title, URL: "https://example.com/" + title}
}

func TestTitleExcludeFilter_Match(t *testing.T) {
	tests := []struct {
		name      string
		terms     []string
		posting   model.Posting
		wantMatch bool
	}{
		{
			name:      "excluded term drops posting",
			terms:     []string{"senior"},
			posting:   posting("Senior Backend Engineer"),
			wantMatch: false,
		},
		{
			name:      "no term present keeps posting",
			terms:     []string{"senior"},
			posting:   posting("Junior Backend Engineer"),
			wantMatch: true,
		},
		{
			name:      "case insensitive matching",
			terms:     []string{"MANAGER"},
			posting:   posting("Product manager trainee"),
			wantMatch: false,
		},
		{
			name:      "term inside a longer word",
			terms:     []string{"vp"},
			posting:   posting("MVP Platform Engineer"),
			wantMatch: false,
		},
		{
			name:      "letters present but not contiguous",
			terms:     []string{"vp"},
			posting:   posting("Software Development Intern"),
			wantMatch: true,
		},
		{
			name:      "substring spanning letters of a word",
			terms:     []string{"lead"},
			posting:   posting("Team Leadership Program"),
			wantMatch: false,
		},
		{
			name:      "term with punctuation",
			terms:     []string{"5+ years"},
			posting:   posting("Engineer (5+ years)"),
			wantMatch: false,
		},
		{
			name:      "empty term list keeps all",
			terms:     []string{},
			posting:   posting("Any Role"),
			wantMatch: true,
		},
		{
			name:      "blank terms are ignored",
			terms:     []string{"", "   "},
			posting:   posting("Graduate Engineer"),
			wantMatch: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTitleExcludeFilter(tt.terms)
			if got := f.Match(tt.posting); got != tt.wantMatch {
				t.Errorf("Match() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	in := []model.Posting{
		posting("Senior Backend Engineer"),
		posting("Junior Backend Engineer"),
		posting("Graduate Trainee"),
		posting("Engineering Director"),
	}
	got := Apply(NewTitleExcludeFilter([]string{"senior", "director"}), in)

	want := []string{"Junior Backend Engineer", "Graduate Trainee"}
	if len(got) != len(want) {
		t.Fatalf("Apply() returned %d postings, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("Apply()[%d] = %q, want %q", i, got[i].Title, w)
		}
	}
	if in[0].Title != "Senior Backend Engineer" {
		t.Error("Apply() must not modify its input")
	}
}
