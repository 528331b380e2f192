package records

import "strings"

type Company struct {
	Name string `json:"name"`
}

type Address struct {
	City string `json:"city"`
}

// Record 远端列表的一行；拉取后只读
type Record struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Company  Company `json:"company"`
	Address  Address `json:"address"`
}

// Row 表格行：在 Record 之上补充可点击链接
type Row struct {
	Record
	EmailLink   string `json:"emailLink"`
	WebsiteLink string `json:"websiteLink"`
}

func toRow(r Record) Row {
	row := Row{Record: r}
	if r.Email != "" {
		row.EmailLink = "mailto:" + r.Email
	}
	if w := strings.TrimSpace(r.Website); w != "" {
		if strings.HasPrefix(w, "http://") || strings.HasPrefix(w, "https://") {
			row.WebsiteLink = w
		} else {
			row.WebsiteLink = "https://" + w
		}
	}
	return row
}
