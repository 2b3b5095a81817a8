package store

import "testing"

func TestNewPageInfo(t *testing.T) {
	cases := []struct {
		name  string
		page  Page
		total int
		want  PageInfo
	}{
		{"empty", Page{Page: 1, PerPage: 10}, 0, PageInfo{Page: 1, PerPage: 10, TotalPages: 0, Total: 0}},
		{"first of three", Page{Page: 1, PerPage: 10}, 25, PageInfo{Page: 1, PerPage: 10, TotalPages: 3, Total: 25, HasNext: true}},
		{"middle", Page{Page: 2, PerPage: 10}, 25, PageInfo{Page: 2, PerPage: 10, TotalPages: 3, Total: 25, HasNext: true, HasPrev: true}},
		{"last", Page{Page: 3, PerPage: 10}, 25, PageInfo{Page: 3, PerPage: 10, TotalPages: 3, Total: 25, HasPrev: true}},
		{"defaults", Page{}, 5, PageInfo{Page: 1, PerPage: DefaultPerPage, TotalPages: 1, Total: 5}},
		{"clamped", Page{Page: 1, PerPage: 500}, 120, PageInfo{Page: 1, PerPage: MaxPerPage, TotalPages: 3, Total: 120, HasNext: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewPageInfo(tc.page, tc.total); got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPageOffset(t *testing.T) {
	if got := (Page{Page: 3, PerPage: 20}).Offset(); got != 40 {
		t.Errorf("offset: got %d, want 40", got)
	}
	if got := (Page{Page: 0, PerPage: 0}).Offset(); got != 0 {
		t.Errorf("offset of zero page: got %d, want 0", got)
	}
}
