package records

import (
	"cmp"
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	ErrUnknownColumn    = errors.New("unknown sort column")
	ErrUnknownDirection = errors.New("unknown sort direction")
)

type Column string

const (
	ColumnNone Column = ""
	ColumnID   Column = "id"
	ColumnName Column = "name"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

type Sort struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// ParseColumn 空串表示不排序（保留接口返回顺序）
func ParseColumn(s string) (Column, error) {
	switch Column(strings.ToLower(strings.TrimSpace(s))) {
	case ColumnNone:
		return ColumnNone, nil
	case ColumnID:
		return ColumnID, nil
	case ColumnName:
		return ColumnName, nil
	}
	return ColumnNone, ErrUnknownColumn
}

// ParseDirection 兼容 antd 的 ascend/descend，空串默认升序
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascend":
		return Ascending, nil
	case "desc", "descend":
		return Descending, nil
	}
	return "", ErrUnknownDirection
}

// Sorter 按列比较；name 列按 locale 排序规则比较。
// collate.Collator 非并发安全，每次 Apply 新建一个。
type Sorter struct {
	Tag language.Tag
}

func NewSorter(locale string) Sorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Sorter{Tag: tag}
}

// Apply 返回排好序的新切片（稳定排序），不修改入参
func (s Sorter) Apply(in []Record, by Sort) []Record {
	out := slices.Clone(in)
	var compare func(a, b Record) int
	switch by.Column {
	case ColumnID:
		compare = func(a, b Record) int { return cmp.Compare(a.ID, b.ID) }
	case ColumnName:
		col := collate.New(s.Tag)
		compare = func(a, b Record) int { return col.CompareString(a.Name, b.Name) }
	default:
		return out
	}
	if by.Direction == Descending {
		asc := compare
		compare = func(a, b Record) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}
