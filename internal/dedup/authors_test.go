// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []Author
	}{
		{"bibtex form", "Vaswani, Ashish and Shazeer, Noam",
			[]Author{{"Ashish", "Vaswani"}, {"Noam", "Shazeer"}}},
		{"typeset list with serial comma", "Yann LeCun, Yoshua Bengio, and Geoffrey Hinton",
			[]Author{{"Yann", "LeCun"}, {"Yoshua", "Bengio"}, {"Geoffrey", "Hinton"}}},
		{"two typeset names", "Yann LeCun and Yoshua Bengio",
			[]Author{{"Yann", "LeCun"}, {"Yoshua", "Bengio"}}},
		{"et al dropped", "Ashish Vaswani et~al.",
			[]Author{{"Ashish", "Vaswani"}}},
		{"others dropped", "Wei, Jason and others",
			[]Author{{"Jason", "Wei"}}},
		{"particles kept with surname", "Ludwig van Beethoven and Jan de Vries",
			[]Author{{"Ludwig", "van Beethoven"}, {"Jan", "de Vries"}}},
		{"suffix form", "King, Jr., Martin Luther",
			[]Author{{"Martin Luther", "King Jr."}}},
		{"single surname", "Aristotle",
			[]Author{{"", "Aristotle"}}},
		{"tilde and accents", `Quoc~V Le and J{\"o}rg M\"uller`,
			[]Author{{"Quoc V", "Le"}, {"Jörg", "Müller"}}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAuthors(tt.field))
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	got := FormatAuthors([]Author{{"Ashish", "Vaswani"}, {"", "Plato"}})
	assert.Equal(t, "Vaswani, Ashish and Plato", got)
}

func TestSurnames(t *testing.T) {
	got := Surnames(ParseAuthors(`Ludwig van Beethoven and M\"uller, J. and Beethoven, L.`))
	assert.Equal(t, []string{"beethoven", "muller"}, got)
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Attention Is All You {Need}":                      "attention is all you need",
		"{BERT}: Pre-training of Deep\n Transformers":      "bert pre training of deep transformers",
		`Sch{\"o}lkopf's \emph{kernel} methods`:            "scholkopf s kernel methods",
		"Café/résumé":                                      "cafe resume",
		`Deep Learning\footnote{A note}`:                   "deep learning",
		`\ss{} and {\o}resund`:                             "ss and oresund",
	}
	for in, want := range tests {
		assert.Equal(t, want, Fold(in), in)
	}
}
