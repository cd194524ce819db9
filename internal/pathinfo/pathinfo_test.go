package pathinfo

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantClient string // "" means nil
		wantDate   string // "" means nil
	}{
		{
			name:       "dated client folder",
			path:       "/photos/2024-05-01 Smith Wedding/IMG_01.CR2",
			wantClient: "Smith Wedding",
			wantDate:   "2024-05-01",
		},
		{
			name:     "bare dated folder",
			path:     "/photos/2024-05-01/IMG_02.NEF",
			wantDate: "2024-05-01",
		},
		{
			name: "no convention",
			path: "/misc/IMG_03.DNG",
		},
		{
			name:       "windows separators",
			path:       `D:\Shoots\2023-11-20 Jones Family\RAW\DSC_0042.ARW`,
			wantClient: "Jones Family",
			wantDate:   "2023-11-20",
		},
		{
			name:     "windows bare date",
			path:     `D:\Shoots\2023-11-20\DSC_0042.ARW`,
			wantDate: "2023-11-20",
		},
		{
			name:       "client pattern wins over earlier bare date",
			path:       "/2022-01-01/2022-02-02 Acme Corp/x.nef",
			wantClient: "Acme Corp",
			wantDate:   "2022-02-02",
		},
		{
			name:       "leftmost client pattern wins",
			path:       "/2021-03-03 First/2021-04-04 Second/x.cr3",
			wantClient: "First",
			wantDate:   "2021-03-03",
		},
		{
			name:       "trailing whitespace trimmed",
			path:       "/2024-07-07 Lake Shoot  /a.raf",
			wantClient: "Lake Shoot",
			wantDate:   "2024-07-07",
		},
		{
			name:       "date in file name",
			path:       "/misc/2024-08-09 beach.dng",
			wantClient: "beach.dng",
			wantDate:   "2024-08-09",
		},
		{
			name: "date at end of path is not a component",
			path: "/misc/2024-08-09",
		},
		{
			name: "empty path",
			path: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.path)
			assertOptional(t, "client", got.Client, tt.wantClient)
			assertOptional(t, "date", got.Date, tt.wantDate)
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	path := "/photos/2024-05-01 Smith Wedding/IMG_01.CR2"
	first := Parse(path)
	for i := 0; i < 10; i++ {
		again := Parse(path)
		if *again.Client != *first.Client || *again.Date != *first.Date {
			t.Fatalf("Parse() not deterministic: %v vs %v", again, first)
		}
	}
}

func assertOptional(t *testing.T, field string, got *string, want string) {
	t.Helper()
	switch {
	case want == "" && got != nil:
		t.Errorf("%s = %q, want nil", field, *got)
	case want != "" && got == nil:
		t.Errorf("%s = nil, want %q", field, want)
	case want != "" && *got != want:
		t.Errorf("%s = %q, want %q", field, *got, want)
	}
}
