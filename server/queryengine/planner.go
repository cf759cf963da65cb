package queryengine

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Planner turns raw query text into a QueryContext.
type Planner interface {
	Plan(ctx context.Context, text string) (*QueryContext, error)
}

type timeRangeCalculator func(time.Time) *TimeRange

// categoryRule maps trigger words to a record category filter. Rules are
// ordered; the first match wins.
type categoryRule struct {
	category string
	keywords []string
}

// KeywordPlanner is a rule-based Planner: time keywords resolve to UTC
// windows, domain keywords select target domains, category keywords become
// equality filters and the rest of the words become content keywords.
type KeywordPlanner struct {
	timeKeywords   map[string]timeRangeCalculator
	domainKeywords map[string][]string
	categoryRules  []categoryRule
	stopWords      []string

	// now is injectable for tests
	now func() time.Time
}

// NewKeywordPlanner creates a planner with the built-in keyword tables.
func NewKeywordPlanner() *KeywordPlanner {
	p := &KeywordPlanner{
		timeKeywords: map[string]timeRangeCalculator{},
		domainKeywords: map[string][]string{
			"finance":  {"spend", "spent", "cost", "money", "expense", "income", "花", "花费", "消费", "支出", "收入", "钱"},
			"meals":    {"food", "meal", "eat", "ate", "diet", "breakfast", "lunch", "dinner", "吃", "饭", "餐", "饮食", "外卖"},
			"health":   {"sleep", "tired", "weight", "exercise", "health", "sick", "睡", "累", "疲惫", "体重", "运动", "健康"},
			"journals": {"journal", "diary", "wrote", "mood", "feel", "feeling", "日记", "心情", "感觉", "情绪"},
			"events":   {"event", "meeting", "appointment", "schedule", "日程", "安排", "会议", "活动"},
		},
		categoryRules: []categoryRule{
			{"takeout", []string{"takeout", "take-out", "外卖"}},
			{"groceries", []string{"groceries", "grocery", "买菜"}},
			{"breakfast", []string{"breakfast", "早餐"}},
			{"lunch", []string{"lunch", "午餐", "午饭"}},
			{"dinner", []string{"dinner", "晚餐", "晚饭"}},
			{"coffee", []string{"coffee", "咖啡"}},
			{"transport", []string{"transport", "commute", "taxi", "交通", "打车"}},
			// "rent" the substring collides with too many common words
			// ("current", "different"), so only the Chinese form triggers.
			{"rent", []string{"房租"}},
		},
		stopWords: []string{
			"the", "a", "an", "i", "my", "me", "did", "do", "how", "much", "what",
			"on", "in", "for", "of", "this", "that", "is", "am", "was", "and",
			"的", "了", "吗", "呢", "我", "是", "在", "有",
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	p.initTimeKeywords()
	return p
}

// initTimeKeywords initializes the time keyword table. All windows are UTC.
func (p *KeywordPlanner) initTimeKeywords() {
	day := func(t time.Time, offset int) *TimeRange {
		t = t.UTC().AddDate(0, 0, offset)
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &TimeRange{Start: start, End: start.Add(24 * time.Hour)}
	}
	week := func(t time.Time, offset int) *TimeRange {
		t = t.UTC()
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := time.Date(t.Year(), t.Month(), t.Day()-weekday+1+offset*7, 0, 0, 0, 0, time.UTC)
		return &TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
	}
	month := func(t time.Time, offset int) *TimeRange {
		t = t.UTC()
		start := time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		return &TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
	}

	add := func(label string, calc timeRangeCalculator, keywords ...string) {
		wrapped := func(t time.Time) *TimeRange {
			tr := calc(t)
			tr.Label = label
			return tr
		}
		for _, kw := range keywords {
			p.timeKeywords[kw] = wrapped
		}
	}

	add("today", func(t time.Time) *TimeRange { return day(t, 0) }, "today", "今天")
	add("yesterday", func(t time.Time) *TimeRange { return day(t, -1) }, "yesterday", "昨天")
	add("this week", func(t time.Time) *TimeRange { return week(t, 0) }, "this week", "本周", "这周")
	add("last week", func(t time.Time) *TimeRange { return week(t, -1) }, "last week", "上周")
	add("this month", func(t time.Time) *TimeRange { return month(t, 0) }, "this month", "本月", "这个月")
	add("last month", func(t time.Time) *TimeRange { return month(t, -1) }, "last month", "上月", "上个月")
}

// Plan derives a QueryContext from raw query text.
func (p *KeywordPlanner) Plan(_ context.Context, text string) (*QueryContext, error) {
	lower := strings.ToLower(strings.TrimSpace(text))

	qc := &QueryContext{
		Filters: map[string]string{},
	}

	// Longest matching time keyword wins, so "this month" beats "this".
	var matched string
	for keyword, calc := range p.timeKeywords {
		if strings.Contains(lower, keyword) && len(keyword) > len(matched) {
			matched = keyword
			qc.TimeRange = calc(p.now())
		}
	}

	for domain, keywords := range p.domainKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				qc.TargetDomains = append(qc.TargetDomains, domain)
				break
			}
		}
	}

rules:
	for _, rule := range p.categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				qc.Filters["category"] = rule.category
				break rules
			}
		}
	}

	qc.Keywords = p.extractKeywords(lower, matched)
	return qc, nil
}

// extractKeywords strips the time keyword and stop words, returning the
// remaining content words in order. CJK runs are kept as single tokens.
func (p *KeywordPlanner) extractKeywords(lower, timeKeyword string) []string {
	if timeKeyword != "" {
		lower = strings.ReplaceAll(lower, timeKeyword, " ")
	}

	tokens := tokenize(lower)
	keywords := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if p.isStopWord(token) {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

func (p *KeywordPlanner) isStopWord(token string) bool {
	for _, sw := range p.stopWords {
		if token == sw {
			return true
		}
	}
	return false
}

// tokenize splits text into words, treating each contiguous CJK run as
// one token and dropping punctuation.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	var currentCJK bool

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			if !currentCJK {
				flush()
				currentCJK = true
			}
			current.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.':
			if currentCJK {
				flush()
				currentCJK = false
			}
			current.WriteRune(r)
		default:
			flush()
			currentCJK = false
		}
	}
	flush()
	return tokens
}
