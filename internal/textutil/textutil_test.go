package textutil

import (
	"reflect"
	"testing"
)

func TestFirstSentence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The notice period is 30 days. Termination follows.", "The notice period is 30 days."},
		{"Was the clause valid? Courts disagree.", "Was the clause valid?"},
		{"No terminator here", "No terminator here"},
		{"  leading space. tail", "leading space."},
		{"Section 4.2 applies to renewals. More text.", "Section 4.2 applies to renewals."},
		{"He said \"stop.\" Then left.", "He said \"stop.\""},
		{"", ""},
	}
	for _, c := range cases {
		if got := FirstSentence(c.in); got != c.want {
			t.Errorf("FirstSentence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEvidenceSentences(t *testing.T) {
	texts := []string{
		"The agreement commenced on 1 March 2021. Further recitals follow.",
		"Short.",
		"The agreement commenced on 1 March 2021. Duplicate lead sentence.",
		"Either party may terminate with 30 days written notice.",
	}
	want := []string{
		"The agreement commenced on 1 March 2021.",
		"Either party may terminate with 30 days written notice.",
	}
	got := EvidenceSentences(texts, 20)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EvidenceSentences = %v, want %v", got, want)
	}
}

func TestEvidenceSentencesEmpty(t *testing.T) {
	if got := EvidenceSentences(nil, 20); got != nil {
		t.Errorf("EvidenceSentences(nil) = %v, want nil", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdef", 4, "abcd..."},
		{"abcdef", 6, "abcdef"},
		{"abcdef", 10, "abcdef"},
		{"héllo wörld", 5, "héllo..."},
		{"abc", 0, ""},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.max); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}
