// Package classifier detects which store chain issued a receipt by scoring
// its text against a table of store signatures.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/textutils"
)

// Keyword is a store marker counted in the receipt text.
type Keyword struct {
	Text   string  `yaml:"text" json:"text"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Signature is the fingerprint of one store.
type Signature struct {
	StoreID    string    `yaml:"store_id" json:"store_id"`
	Keywords   []Keyword `yaml:"keywords" json:"keywords"`
	Structural []string  `yaml:"structural" json:"structural"`
}

// Weights are the scoring constants.
//
//	score = AnyKeyword (if any keyword occurs)
//	      + Σ occurrences(keyword) × keyword.Weight
//	      + Structural (if any structural regex matches)
//
// The best store wins when its score reaches Threshold.
type Weights struct {
	AnyKeyword float64 `mapstructure:"any_keyword" yaml:"any_keyword"`
	Structural float64 `mapstructure:"structural" yaml:"structural"`
	Threshold  float64 `mapstructure:"threshold" yaml:"threshold"`
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() Weights {
	return Weights{AnyKeyword: 10, Structural: 5, Threshold: 10}
}

// Score is the classification score of one store.
type Score struct {
	StoreID         string  `json:"store_id"`
	Score           float64 `json:"score"`
	KeywordHits     int     `json:"keyword_hits"`
	StructuralMatch bool    `json:"structural_match"`
}

type compiledSignature struct {
	storeID    string
	keywords   []Keyword
	structural []*regexp.Regexp
}

// Classifier scores text against signatures in registration order.
type Classifier struct {
	signatures []compiledSignature
	weights    Weights
}

// New compiles the signature table.
func New(signatures []Signature, weights Weights) (*Classifier, error) {
	c := &Classifier{weights: weights}
	for _, sig := range signatures {
		if strings.TrimSpace(sig.StoreID) == "" {
			return nil, fmt.Errorf("store signature without id")
		}
		compiled := compiledSignature{storeID: sig.StoreID}
		for _, kw := range sig.Keywords {
			text := strings.ToLower(textutils.Fold(kw.Text))
			if text == "" {
				continue
			}
			compiled.keywords = append(compiled.keywords, Keyword{Text: text, Weight: kw.Weight})
		}
		for idx, pattern := range sig.Structural {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("store %s structural pattern %d: %w", sig.StoreID, idx, err)
			}
			compiled.structural = append(compiled.structural, re)
		}
		c.signatures = append(c.signatures, compiled)
	}
	return c, nil
}

// NewDefault returns a classifier over DefaultSignatures.
func NewDefault(weights Weights) *Classifier {
	c, err := New(DefaultSignatures(), weights)
	if err != nil {
		panic(err)
	}
	return c
}

// Threshold returns the minimum winning score.
func (c *Classifier) Threshold() float64 {
	return c.weights.Threshold
}

// Scores returns the score of every store in registration order.
func (c *Classifier) Scores(text string) []Score {
	folded, lower := prepare(text)
	scores := make([]Score, len(c.signatures))
	for idx, sig := range c.signatures {
		scores[idx] = c.score(sig, folded, lower)
	}
	return scores
}

// Classify returns the id of the best scoring store, or "" when no store
// reaches the threshold. Ties go to the store registered first.
func (c *Classifier) Classify(text string) string {
	best := ""
	bestScore := 0.0
	for _, s := range c.Scores(text) {
		if s.Score >= c.weights.Threshold && s.Score > bestScore {
			best, bestScore = s.StoreID, s.Score
		}
	}
	return best
}

// prepare folds every line so keywords and structural patterns see the same
// text the extraction rules do.
func prepare(text string) (folded, lower string) {
	folded = strings.Join(textutils.Texts(textutils.SplitLines(text)), "\n")
	return folded, strings.ToLower(folded)
}

func (c *Classifier) score(sig compiledSignature, folded, lower string) Score {
	s := Score{StoreID: sig.storeID}
	for _, kw := range sig.keywords {
		n := strings.Count(lower, kw.Text)
		if n == 0 {
			continue
		}
		s.KeywordHits += n
		s.Score += float64(n) * kw.Weight
	}
	if s.KeywordHits > 0 {
		s.Score += c.weights.AnyKeyword
	}
	for _, re := range sig.structural {
		if re.MatchString(folded) {
			s.StructuralMatch = true
			s.Score += c.weights.Structural
			break
		}
	}
	return s
}

// DefaultSignatures returns the built-in store table. Store ids match the
// store identifiers used by catalog rules.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			StoreID: catalog.StoreWarehouse,
			Keywords: []Keyword{
				{Text: "COSTCO", Weight: 5},
				{Text: "コストコ", Weight: 5},
				{Text: "WHOLESALE", Weight: 3},
				{Text: "KIRKLAND", Weight: 1},
				{Text: "会員番号", Weight: 2},
			},
			Structural: []string{
				// name / code / quantity / unit price / total
				`(?m)^.*\p{L}.*\n\d{4,8}\n\d+\s*(?:個|コ|点)\n¥?[\d,]+\n¥?[\d,]+\s*[A-Z※*]?$`,
				`(?m)^(?:E\s+)?\d{4,8}\s+.+\s+\d+\.\d{2}\s*[A-Z]?$`,
			},
		},
		{
			StoreID: catalog.StoreSevenEleven,
			Keywords: []Keyword{
				{Text: "セブン-イレブン", Weight: 5},
				{Text: "セブンイレブン", Weight: 5},
				{Text: "7-ELEVEN", Weight: 5},
				{Text: "7&i", Weight: 2},
			},
			Structural: []string{`(?m)\s¥?[\d,]+\s*軽$`},
		},
		{
			StoreID: catalog.StoreLawson,
			Keywords: []Keyword{
				{Text: "LAWSON", Weight: 5},
				{Text: "ローソン", Weight: 5},
				{Text: "Ponta", Weight: 2},
			},
			Structural: []string{`(?m)\s¥?[\d,]+\s*軽$`},
		},
		{
			StoreID: catalog.StoreFamilyMart,
			Keywords: []Keyword{
				{Text: "FamilyMart", Weight: 5},
				{Text: "ファミリーマート", Weight: 5},
				{Text: "ファミマ", Weight: 3},
			},
			Structural: []string{`(?m)\s¥?[\d,]+\s*軽$`},
		},
		{
			StoreID: catalog.StoreSupermarket,
			Keywords: []Keyword{
				{Text: "AEON", Weight: 4},
				{Text: "イオン", Weight: 4},
				{Text: "SEIYU", Weight: 4},
				{Text: "西友", Weight: 4},
				{Text: "スーパー", Weight: 2},
				{Text: "SUPERMARKET", Weight: 2},
			},
			Structural: []string{`(?m)^.+\s¥?[\d,]+\s*[*※]$`},
		},
	}
}
