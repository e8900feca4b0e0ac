package view

// Ellipsis marks a gap in the pagination strip returned by PageNumbers.
const Ellipsis = 0

// PageNumbers returns the pagination strip for the current page. When
// there are more than maxVisible pages the strip always shows the first
// and last page, a window around current, and Ellipsis for the gaps.
func PageNumbers(current, total, maxVisible int) []int {
	if maxVisible <= 0 {
		maxVisible = 3
	}
	if total <= maxVisible {
		pages := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	pages := []int{1}
	start := max(2, current-1)
	end := min(total-1, current+1)
	if current <= 2 {
		end = 3
	} else if current >= total-1 {
		start = total - 2
	}

	if start > 2 {
		pages = append(pages, Ellipsis)
	}
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	if end < total-1 {
		pages = append(pages, Ellipsis)
	}
	return append(pages, total)
}
