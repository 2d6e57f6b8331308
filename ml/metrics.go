package ml

import (
	"fmt"
	"strconv"
	"strings"
)

// Accuracy returns the share of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

type ClassMetrics struct {
	Name      string  `json:"name"`
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Support     int            `json:"support"`
}

// ClassificationReport computes per-class precision, recall and F1 for labels,
// named by names (falling back to the label number). Undefined ratios are 0.
func ClassificationReport(yTrue, yPred []int, labels []int, names []string) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("label count mismatch: %d true, %d predicted", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels")
	}

	report := &Report{Accuracy: Accuracy(yTrue, yPred), Support: len(yTrue)}
	for i, label := range labels {
		var tp, fp, fn int
		for j := range yTrue {
			switch {
			case yTrue[j] == label && yPred[j] == label:
				tp++
			case yPred[j] == label:
				fp++
			case yTrue[j] == label:
				fn++
			}
		}
		m := ClassMetrics{Label: label, Support: tp + fn}
		if i < len(names) {
			m.Name = names[i]
		} else {
			m.Name = strconv.Itoa(label)
		}
		m.Precision = ratio(tp, tp+fp)
		m.Recall = ratio(tp, tp+fn)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes = append(report.Classes, m)
	}

	report.MacroAvg = ClassMetrics{Name: "macro avg"}
	report.WeightedAvg = ClassMetrics{Name: "weighted avg"}
	totalSupport := 0
	for _, m := range report.Classes {
		totalSupport += m.Support
	}
	for _, m := range report.Classes {
		n := float64(len(report.Classes))
		report.MacroAvg.Precision += m.Precision / n
		report.MacroAvg.Recall += m.Recall / n
		report.MacroAvg.F1 += m.F1 / n
		if totalSupport > 0 {
			w := float64(m.Support) / float64(totalSupport)
			report.WeightedAvg.Precision += m.Precision * w
			report.WeightedAvg.Recall += m.Recall * w
			report.WeightedAvg.F1 += m.F1 * w
		}
	}
	report.MacroAvg.Support = totalSupport
	report.WeightedAvg.Support = totalSupport
	return report, nil
}

// String renders the report as a fixed-width table with two decimals.
func (r *Report) String() string {
	width := len(r.WeightedAvg.Name)
	for _, m := range r.Classes {
		if len(m.Name) > width {
			width = len(m.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(m ClassMetrics) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, m.Name, m.Precision, m.Recall, m.F1, m.Support)
	}
	for _, m := range r.Classes {
		row(m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
