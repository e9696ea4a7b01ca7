package categorizer

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

// builtinCategories is evaluated in order; the first category with a matching
// keyword wins. More specific categories come before general ones so that
// "ice cream" is frozen rather than dairy and "onigiri" falls through to food.
var builtinCategories = []models.CategoryConfig{
	{Name: models.CategoryAlcohol, Keywords: []string{
		"beer", "wine", "sake", "whisky", "whiskey", "vodka", "chuhai", "highball",
		"ビール", "ワイン", "日本酒", "焼酎", "ハイボール", "チューハイ", "サワー",
	}},
	{Name: models.CategoryFrozen, Keywords: []string{
		"frozen", "ice cream", "gelato",
		"冷凍", "アイス",
	}},
	{Name: models.CategoryDairy, Keywords: []string{
		"milk", "cheese", "yogurt", "yoghurt", "butter", "cream", "eggs",
		"牛乳", "ミルク", "チーズ", "ヨーグルト", "バター", "生クリーム", "卵", "たまご",
	}},
	{Name: models.CategoryMeat, Keywords: []string{
		"beef", "pork", "chicken", "steak", "bacon", "sausage", "ham", "turkey",
		"牛肉", "豚", "鶏", "ひき肉", "ハム", "ベーコン", "ソーセージ",
	}},
	{Name: models.CategoryProduce, Keywords: []string{
		"apple", "banana", "orange", "tomato", "lettuce", "onion", "potato", "carrot",
		"eggplant", "watermelon", "grape", "strawberr", "blueberr", "avocado", "vegetable", "fruit",
		"野菜", "りんご", "バナナ", "トマト", "玉ねぎ", "キャベツ", "なす", "すいか", "いちご", "みかん", "レタス",
	}},
	{Name: models.CategoryBakery, Keywords: []string{
		"bread", "bagel", "croissant", "muffin", "cake", "donut", "pastry", "baguette",
		"食パン", "ベーグル", "ケーキ", "クロワッサン", "ドーナツ",
	}},
	{Name: models.CategorySnacks, Keywords: []string{
		"snack", "chips", "chocolate", "cookie", "candy", "cracker", "popcorn", "gum", "nuts", "pretzel",
		"お菓子", "チョコ", "ポテトチップ", "スナック", "クッキー", "ガム", "せんべい",
	}},
	{Name: models.CategoryBeverage, Keywords: []string{
		"water", "juice", "coffee", "tea", "soda", "cola", "drink", "latte",
		"お茶", "緑茶", "コーヒー", "ジュース", "飲料", "コーラ", "ミネラルウォーター",
	}},
	{Name: models.CategoryHousehold, Keywords: []string{
		"detergent", "tissue", "paper towel", "toilet", "trash bag", "battery", "batteries", "sponge", "bleach",
		"洗剤", "ティッシュ", "トイレ", "電池", "ゴミ袋", "スポンジ", "ラップ",
	}},
	{Name: models.CategoryPersonalCare, Keywords: []string{
		"shampoo", "conditioner", "soap", "toothpaste", "toothbrush", "lotion", "deodorant", "razor",
		"シャンプー", "石鹸", "歯磨", "歯ブラシ", "乳液", "化粧",
	}},
	{Name: models.CategoryFood, Keywords: []string{
		"rice", "noodle", "pasta", "soup", "sandwich", "sushi", "onigiri", "bento", "salad", "pizza", "curry", "ramen",
		"おにぎり", "弁当", "米", "ご飯", "麺", "寿司", "カレー", "サンド", "惣菜", "パスタ",
	}},
}

// keywordMatcher tests one keyword. ASCII keywords must start at a word
// boundary and match case-insensitively; other scripts match as substrings.
type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp
}

func newKeywordMatcher(keyword string) keywordMatcher {
	m := keywordMatcher{keyword: keyword}
	if isASCII(keyword) {
		m.re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword))
	}
	return m
}

func (m keywordMatcher) matches(s string) bool {
	if m.re != nil {
		return m.re.MatchString(s)
	}
	return strings.Contains(s, m.keyword)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

type categoryMatcher struct {
	name     string
	keywords []keywordMatcher
}

// KeywordStrategy implements categorization using keyword matching. Categories
// from the categories file are evaluated before the built-in table.
type KeywordStrategy struct {
	categories []categoryMatcher
	store      CategoryStoreInterface
	logger     logging.Logger
}

// NewKeywordStrategy creates a new KeywordStrategy instance. A nil store
// leaves only the built-in table.
func NewKeywordStrategy(store CategoryStoreInterface, logger logging.Logger) *KeywordStrategy {
	strategy := &KeywordStrategy{
		store:  store,
		logger: logging.OrDefault(logger),
	}
	strategy.loadCategories()
	return strategy
}

// Name returns the name of this strategy for logging and debugging.
func (s *KeywordStrategy) Name() string {
	return "Keyword"
}

// Categorize returns the first category with a keyword found in the product name.
func (s *KeywordStrategy) Categorize(ctx context.Context, p Product) (string, bool, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", false, nil
	}

	for _, category := range s.categories {
		for _, kw := range category.keywords {
			if kw.matches(p.Name) {
				s.logger.WithFields(
					logging.F("strategy", s.Name()),
					logging.F("product", p.Name),
					logging.F("keyword", kw.keyword),
					logging.F("category", category.name),
				).Debug("Product categorized using keyword matching")
				return category.name, true, nil
			}
		}
	}
	return "", false, nil
}

func (s *KeywordStrategy) loadCategories() {
	var configured []models.CategoryConfig
	if s.store != nil {
		categories, err := s.store.LoadCategories()
		if err != nil {
			s.logger.WithError(err).Warn("Failed to load categories for KeywordStrategy")
		} else {
			configured = categories
		}
	}

	all := make([]models.CategoryConfig, 0, len(configured)+len(builtinCategories))
	all = append(all, configured...)
	all = append(all, builtinCategories...)

	s.categories = make([]categoryMatcher, 0, len(all))
	for _, c := range all {
		if !models.IsKnownCategory(c.Name) {
			s.logger.WithField("category", c.Name).Warn("Ignoring unknown category in categories file")
			continue
		}
		m := categoryMatcher{name: c.Name}
		for _, kw := range c.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				m.keywords = append(m.keywords, newKeywordMatcher(kw))
			}
		}
		s.categories = append(s.categories, m)
	}
	s.logger.WithField(logging.FieldCount, len(configured)).Debug("Loaded categories for KeywordStrategy")
}
