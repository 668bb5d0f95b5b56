package conversation

import (
	"strconv"
)

// PerPage is the default page size for listings.
const PerPage = 5

// Item is one listed record.
type Item struct {
	ID    int64
	Label string
}

// Paginate renders page (0-based) of items as buttons "• label" with token
// "{kind}_{id}", previous/next buttons "{kind}_page_{n}" and a home button.
func Paginate(items []Item, kind string, page, perPage int) Keyboard {
	if perPage <= 0 {
		perPage = PerPage
	}
	if len(items) == 0 {
		return Keyboard{
			{Btn("❌ موردی یافت نشد", TokenNoop)},
			{Btn("🏠 منوی اصلی", TokenMainMenu)},
		}
	}
	if page < 0 {
		page = 0
	}
	start := page * perPage
	if start >= len(items) {
		page = (len(items) - 1) / perPage
		start = page * perPage
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	kb := make(Keyboard, 0, end-start+2)
	for _, it := range items[start:end] {
		kb = append(kb, Row(Btn("• "+it.Label, kind+"_"+strconv.FormatInt(it.ID, 10))))
	}
	var nav []Button
	if page > 0 {
		nav = append(nav, Btn("⬅️ قبلی", kind+"_page_"+strconv.Itoa(page-1)))
	}
	if end < len(items) {
		nav = append(nav, Btn("➡️ بعدی", kind+"_page_"+strconv.Itoa(page+1)))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb, Row(Btn("🏠 بازگشت به منو", TokenMainMenu)))
	return kb
}

// PageToken returns the token of page n for kind.
func PageToken(kind string, n int) string {
	return kind + "_page_" + strconv.Itoa(n)
}
