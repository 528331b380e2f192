package records

import (
	"errors"
	"fmt"
	"slices"
)

const DefaultPageSize = 10

var PageSizeOptions = []int{10, 20, 50, 100}

var (
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = errors.New("unsupported page size")
)

func ValidPageSize(n int) bool { return slices.Contains(PageSizeOptions, n) }

// PageCount 总页数，空集为 0
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Window 计算 1 起始页码对应的切片区间；页码越界时夹到最后一页
func Window(total, page, size int) (cur, start, end int) {
	pages := PageCount(total, size)
	if pages == 0 {
		return 1, 0, 0
	}
	cur = min(max(page, 1), pages)
	start = (cur - 1) * size
	end = min(start+size, total)
	return cur, start, end
}

// RangeLabel 形如 "11-20 of 23"
func RangeLabel(start, end, total int) string {
	if total == 0 || end <= start {
		return fmt.Sprintf("0-0 of %d", total)
	}
	return fmt.Sprintf("%d-%d of %d", start+1, end, total)
}
