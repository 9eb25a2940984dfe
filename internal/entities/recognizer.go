package entities

// Entities is the output of named-entity recognition over clean text. Slice
// order is extraction order and feeds the summarizer's first-match-wins field
// derivation, so implementations must be deterministic.
type Entities struct {
	Organizations []string `json:"organizations"`
	Places        []string `json:"places"`
	Money         []string `json:"money"`
	Dates         []string `json:"dates"`
	Numbers       []string `json:"numbers"`
}

// Recognizer is the capability boundary for general-purpose NER. The default
// implementation is the lexicon recognizer; any toolkit that can tag
// organizations, places, money, dates and numbers satisfies this interface.
type Recognizer interface {
	Recognize(text string) Entities
}
