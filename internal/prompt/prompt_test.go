package prompt

import (
	"strings"
	"testing"

	"github.com/draftforge/draftforge/internal/schema"
)

func TestGetBuiltinStudyTypes(t *testing.T) {
	for _, study := range []schema.StudyType{schema.StudyLegalStatement, schema.StudyCaseStudy} {
		set, err := Get(study)
		if err != nil {
			t.Fatalf("Get(%s): %v", study, err)
		}
		if set.Study != study {
			t.Errorf("set.Study = %s, want %s", set.Study, study)
		}
		if set.System == "" {
			t.Error("system prompt is empty")
		}
		if len(set.Sections) == 0 {
			t.Error("section table is empty")
		}
		for _, ct := range []schema.ContentType{schema.ContentGenerated, schema.ContentStructural, schema.ContentFormatting} {
			if set.Section[ct] == nil {
				t.Errorf("no section template for content type %s", ct)
			}
		}
		if set.Reformat == nil || set.Gap == nil || set.Enhance == nil {
			t.Error("repair/gap/enhance templates missing")
		}
		if set.CoherenceWhole == nil || set.CoherencePair == nil || set.Revision == nil {
			t.Error("coherence templates missing")
		}
	}
}

func TestGetUnknownStudyType(t *testing.T) {
	if _, err := Get(schema.StudyType("screenplay")); err == nil {
		t.Fatal("expected error for unknown study type")
	}
}

func TestCustomSet(t *testing.T) {
	sections := []schema.SectionConfig{
		{ID: "s1", Title: "Only Section", Element: schema.ElementText, Content: schema.ContentGenerated},
	}
	set := Custom(sections)
	if set.Study != schema.StudyCustom {
		t.Errorf("Study = %s, want custom", set.Study)
	}
	if len(set.Sections) != 1 || set.Sections[0].ID != "s1" {
		t.Errorf("Sections = %+v, want caller table", set.Sections)
	}
	if set.Section[schema.ContentGenerated] == nil {
		t.Error("custom set missing shared templates")
	}
}

func TestRenderSectionPrompt(t *testing.T) {
	set, err := Get(schema.StudyLegalStatement)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(set.Section[schema.ContentGenerated], SectionData{
		Title:       "Background",
		Description: "Set out the factual background.",
		Context:     "[Source 1: lease.pdf]\nThe lease commenced in 2021.",
		Previous:    "Introduction: the parties entered a lease.",
		MaxWords:    400,
		Shape:       ShapeInstruction(schema.ElementText),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"Background", "lease.pdf", "400", "textdata"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, out)
		}
	}
}

func TestRenderNilTemplate(t *testing.T) {
	if _, err := Render(nil, nil); err == nil {
		t.Fatal("expected error for nil template")
	}
}

func TestShapeInstruction(t *testing.T) {
	cases := []struct {
		el   schema.ElementType
		want string
	}{
		{schema.ElementText, "textdata"},
		{schema.ElementList, "listdata"},
		{schema.ElementTable, "tabledata"},
		{schema.ElementTitle, "textdata"},
	}
	for _, c := range cases {
		if got := ShapeInstruction(c.el); !strings.Contains(got, c.want) {
			t.Errorf("ShapeInstruction(%s) = %q, want mention of %q", c.el, got, c.want)
		}
	}
}

func TestSectionTablesWellFormed(t *testing.T) {
	for _, study := range []schema.StudyType{schema.StudyLegalStatement, schema.StudyCaseStudy} {
		set, _ := Get(study)
		seen := make(map[string]bool)
		for _, sec := range set.Sections {
			if sec.ID == "" {
				t.Errorf("%s: section with empty ID", study)
			}
			if seen[sec.ID] {
				t.Errorf("%s: duplicate section ID %q", study, sec.ID)
			}
			seen[sec.ID] = true
			if sec.Content == schema.ContentGenerated && len(sec.QueryTemplates) == 0 {
				t.Errorf("%s: generated section %q has no query templates", study, sec.ID)
			}
		}
	}
}
