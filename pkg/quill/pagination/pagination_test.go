package pagination

import "testing"

func TestNumPages(t *testing.T) {
	tests := []struct {
		name    string
		count   int64
		perPage int
		orphans int
		want    int
	}{
		{"empty", 0, 3, 0, 1},
		{"exact", 6, 3, 0, 2},
		{"remainder", 7, 3, 0, 3},
		{"single", 2, 3, 0, 1},
		{"orphans absorbed", 7, 3, 1, 2},
		{"orphans not absorbed", 8, 3, 1, 3},
		{"all orphans", 2, 3, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.count, tt.perPage, tt.orphans).NumPages()
			if got != tt.want {
				t.Errorf("Expected %d pages, got %d", tt.want, got)
			}
		})
	}
}

func TestPageBounds(t *testing.T) {
	p := New(7, 3, 0)

	tests := []struct {
		n          int
		offset     int
		limit      int
		hasNext    bool
		hasPrevious bool
	}{
		{1, 0, 3, true, false},
		{2, 3, 3, true, true},
		{3, 6, 1, false, true},
	}

	for _, tt := range tests {
		page, err := p.Page(tt.n)
		if err != nil {
			t.Fatalf("Page(%d) failed: %v", tt.n, err)
		}
		if page.Offset != tt.offset || page.Limit != tt.limit {
			t.Errorf("Page(%d): expected offset %d limit %d, got %d %d", tt.n, tt.offset, tt.limit, page.Offset, page.Limit)
		}
		if page.HasNext() != tt.hasNext || page.HasPrevious() != tt.hasPrevious {
			t.Errorf("Page(%d): unexpected navigation flags", tt.n)
		}
	}
}

func TestOrphansJoinLastPage(t *testing.T) {
	p := New(7, 3, 1)

	page, err := p.Page(2)
	if err != nil {
		t.Fatalf("Page(2) failed: %v", err)
	}
	if page.Limit != 4 {
		t.Errorf("Expected last page to hold 4 items, got %d", page.Limit)
	}
	if page.EndIndex() != 7 {
		t.Errorf("Expected end index 7, got %d", page.EndIndex())
	}
}

func TestEmptyResultFirstPage(t *testing.T) {
	page, err := New(0, 3, 0).Page(1)
	if err != nil {
		t.Fatalf("Page(1) on empty set failed: %v", err)
	}
	if page.Limit != 0 || page.StartIndex() != 0 || page.HasOtherPages() {
		t.Errorf("Unexpected empty page: %+v", page)
	}
}

func TestParsePage(t *testing.T) {
	p := New(10, 3, 0)

	tests := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{"", 1, nil},
		{"2", 2, nil},
		{" 3 ", 3, nil},
		{"last", 4, nil},
		{"0", 0, ErrEmptyPage},
		{"5", 0, ErrEmptyPage},
		{"-1", 0, ErrEmptyPage},
		{"abc", 0, ErrPageNotAnInteger},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			page, err := p.ParsePage(tt.raw)
			if err != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && page.Number != tt.want {
				t.Errorf("Expected page %d, got %d", tt.want, page.Number)
			}
		})
	}
}

func TestNumbers(t *testing.T) {
	page, _ := New(9, 3, 0).Page(1)
	nums := page.Numbers()
	if len(nums) != 3 || nums[0] != 1 || nums[2] != 3 {
		t.Errorf("Expected [1 2 3], got %v", nums)
	}
}
