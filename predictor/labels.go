package predictor

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"irisforest/dataset"
)

// LabelTable maps class codes to display names.
type LabelTable map[int]string

// DefaultLabels is {0: Setosa, 1: Versicolor, 2: Virginica}.
func DefaultLabels() LabelTable {
	return LabelsFromNames(dataset.TargetNames)
}

// LabelsFromNames title-cases names, keyed by position.
func LabelsFromNames(names []string) LabelTable {
	caser := cases.Title(language.English)
	table := make(LabelTable, len(names))
	for code, name := range names {
		table[code] = caser.String(name)
	}
	return table
}

func (t LabelTable) Lookup(code int) (string, error) {
	name, ok := t[code]
	if !ok {
		return "", unknownLabel(code)
	}
	return name, nil
}
