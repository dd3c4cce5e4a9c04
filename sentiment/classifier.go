package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

type Classifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewClassifier() *Classifier {
	return &Classifier{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

// Classify returns the compound polarity of text in [-1, 1] and the label
// derived from it.
func (c *Classifier) Classify(text string) (float64, Label) {
	if strings.TrimSpace(text) == "" {
		return 0, LabelNeutral
	}

	score := c.analyzer.PolarityScores(text).Compound
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}

	return score, LabelFor(score)
}

// LabelFor maps a polarity score to its bucket. The boundary values 0.1 and
// -0.1 are both neutral.
func LabelFor(score float64) Label {
	switch {
	case score > positiveThreshold:
		return LabelPositive
	case score < negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}
