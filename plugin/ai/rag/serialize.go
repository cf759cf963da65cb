package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeffreyouni/life-butler/store"
)

// SearchText renders a record into its canonical searchable-text form.
// Each domain gets a bilingual rendering so that queries in either
// language land near the record in embedding space.
func SearchText(record *store.Record) string {
	if record == nil {
		return ""
	}

	date := record.Timestamp.Format("2006-01-02")
	data := record.Data

	switch record.Domain {
	case store.DomainFinance:
		var sb strings.Builder
		kind := data["type"]
		if kind == "income" {
			sb.WriteString("income 收入")
		} else {
			sb.WriteString("expense 支出 spending 消费")
		}
		if amount := data["amount"]; amount != "" {
			fmt.Fprintf(&sb, " amount 金额 %s", amount)
		}
		if category := data["category"]; category != "" {
			fmt.Fprintf(&sb, " category 分类 %s", category)
		}
		if notes := data["notes"]; notes != "" {
			fmt.Fprintf(&sb, " notes 备注 %s", notes)
		}
		fmt.Fprintf(&sb, " date 日期 %s", date)
		return sb.String()

	case store.DomainMeals:
		var sb strings.Builder
		sb.WriteString("meal 用餐 饮食")
		if name := data["name"]; name != "" {
			fmt.Fprintf(&sb, " %s", name)
		}
		if mealType := data["meal_type"]; mealType != "" {
			fmt.Fprintf(&sb, " %s", mealType)
		}
		if calories := data["calories"]; calories != "" {
			fmt.Fprintf(&sb, " calories 热量 %s", calories)
		}
		if notes := data["notes"]; notes != "" {
			fmt.Fprintf(&sb, " %s", notes)
		}
		fmt.Fprintf(&sb, " date 日期 %s", date)
		return sb.String()

	case store.DomainHealth:
		var sb strings.Builder
		sb.WriteString("health 健康")
		if metric := data["metric"]; metric != "" {
			fmt.Fprintf(&sb, " %s", metric)
		}
		if value := data["value"]; value != "" {
			fmt.Fprintf(&sb, " %s", value)
		}
		if notes := data["notes"]; notes != "" {
			fmt.Fprintf(&sb, " %s", notes)
		}
		fmt.Fprintf(&sb, " date 日期 %s", date)
		return sb.String()

	case store.DomainJournals:
		var sb strings.Builder
		sb.WriteString("journal 日记")
		if title := data["title"]; title != "" {
			fmt.Fprintf(&sb, " %s", title)
		}
		if mood := data["mood"]; mood != "" {
			fmt.Fprintf(&sb, " mood 心情 %s", mood)
		}
		if content := data["content"]; content != "" {
			fmt.Fprintf(&sb, " %s", content)
		}
		fmt.Fprintf(&sb, " date 日期 %s", date)
		return sb.String()

	case store.DomainEvents:
		var sb strings.Builder
		sb.WriteString("event 日程 活动")
		if title := data["title"]; title != "" {
			fmt.Fprintf(&sb, " %s", title)
		}
		if location := data["location"]; location != "" {
			fmt.Fprintf(&sb, " location 地点 %s", location)
		}
		if notes := data["notes"]; notes != "" {
			fmt.Fprintf(&sb, " %s", notes)
		}
		fmt.Fprintf(&sb, " date 日期 %s", date)
		return sb.String()

	default:
		// Unknown domains still get a generic rendering so they remain
		// searchable. Keys are sorted so the text is stable across
		// rebuilds.
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := []string{string(record.Domain)}
		for _, k := range keys {
			parts = append(parts, k+" "+data[k])
		}
		parts = append(parts, "date 日期 "+date)
		return strings.Join(parts, " ")
	}
}
