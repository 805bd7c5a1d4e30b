package cli

import "testing"

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    SortOrder
		wantErr bool
	}{
		{"source", SortBySource, false},
		{"DATE", SortByDate, false},
		{" name ", SortByName, false},
		{"state", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortOrder(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortOrder(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSortOrder(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSortRecords(t *testing.T) {
	tests := []struct {
		name  string
		order SortOrder
		want  []string
	}{
		{"source keeps page order", SortBySource, []string{"元旦", "春节", "国庆节"}},
		{"date", SortByDate, []string{"国庆节", "元旦", "春节"}},
		{"name", SortByName, []string{"元旦", "国庆节", "春节"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := sampleResult().Records
			sortRecords(records, tt.order)

			for i, name := range tt.want {
				if records[i].Name != name {
					t.Errorf("records[%d] = %q, want %q", i, records[i].Name, name)
				}
			}
		})
	}
}
