package ledger

import "testing"

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name   string
		src    Source
		wantOK bool
	}{
		{"complete", Source{SpreadsheetID: "id", Range: "credit!A:K"}, true},
		{"missing id", Source{Range: "credit!A:K"}, false},
		{"missing range", Source{SpreadsheetID: "id"}, false},
		{"empty", Source{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.wantOK)
			}
		})
	}
}

func TestRowIndexByKey(t *testing.T) {
	rows := []map[string]string{
		{"code": "C-1", "Description": "first"},
		{"codigo": " c-2 ", "Description": "legacy column"},
		{"code": "", "Description": "blank code"},
	}
	tests := []struct {
		key  string
		want int
	}{
		{"C-1", 2}, // first data row is sheet row 2
		{"c-1", 2},
		{" C-2 ", 3}, // trimmed, legacy "codigo" header
		{"C-9", 0},
		{"", 0}, // an empty key must not match blank cells
	}
	for _, tt := range tests {
		if got := RowIndexByKey(rows, tt.key); got != tt.want {
			t.Errorf("RowIndexByKey(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
