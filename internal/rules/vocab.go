package rules

// Vocabularies used for load-time validation. Rules referencing a tag,
// relation or feature outside these sets are rejected before any sentence
// is processed.

// uposTags is the Universal Dependencies coarse part-of-speech inventory.
var uposTags = map[string]bool{
	"ADJ": true, "ADP": true, "ADV": true, "AUX": true, "CCONJ": true,
	"DET": true, "INTJ": true, "NOUN": true, "NUM": true, "PART": true,
	"PRON": true, "PROPN": true, "PUNCT": true, "SCONJ": true, "SYM": true,
	"VERB": true, "X": true,
}

// depRelations is the UD v2 universal relation inventory. Language-specific
// subtypes ("nmod:poss", "flat:name", "nsubj:cop") validate on the part
// before the colon.
var depRelations = map[string]bool{
	"acl": true, "advcl": true, "advmod": true, "amod": true, "appos": true,
	"aux": true, "case": true, "cc": true, "ccomp": true, "clf": true,
	"compound": true, "conj": true, "cop": true, "csubj": true, "dep": true,
	"det": true, "discourse": true, "dislocated": true, "expl": true,
	"fixed": true, "flat": true, "goeswith": true, "iobj": true, "list": true,
	"mark": true, "nmod": true, "nsubj": true, "nummod": true, "obj": true,
	"obl": true, "orphan": true, "parataxis": true, "punct": true,
	"reparandum": true, "root": true, "vocative": true, "xcomp": true,
}

// featureNames is the UD morphological feature inventory plus the
// Finnish-specific features produced by the Turku parser.
var featureNames = map[string]bool{
	"Abbr": true, "AdpType": true, "AdvType": true, "Animacy": true,
	"Aspect": true, "Case": true, "Clitic": true, "Connegative": true,
	"Definite": true, "Degree": true, "Derivation": true, "Evident": true,
	"Foreign": true, "Gender": true, "InfForm": true, "Mood": true,
	"NumType": true, "Number": true, "PartForm": true, "Person": true,
	"Polarity": true, "Polite": true, "Poss": true, "PronType": true,
	"Reflex": true, "Style": true, "Tense": true, "Typo": true,
	"VerbForm": true, "Voice": true,
}

// ValidPOS reports whether the tag is a recognized UPOS tag.
func ValidPOS(tag string) bool { return uposTags[tag] }

// ValidRelation reports whether the label is a recognized dependency
// relation, ignoring any language-specific subtype suffix.
func ValidRelation(label string) bool {
	for i := 0; i < len(label); i++ {
		if label[i] == ':' {
			return depRelations[label[:i]] && i+1 < len(label)
		}
	}
	return depRelations[label]
}

// ValidFeature reports whether the name is a recognized feature name.
func ValidFeature(name string) bool { return featureNames[name] }
