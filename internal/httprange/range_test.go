package httprange

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantNil  bool
		wantSpec Spec
	}{
		{"both bounds", "bytes=0-499", false, Spec{Start: 0, End: 499, HasStart: true, HasEnd: true}},
		{"open end", "bytes=500-", false, Spec{Start: 500, HasStart: true}},
		{"open start", "bytes=-500", false, Spec{End: 500, HasEnd: true}},
		{"colon separator", "bytes:0-499", false, Spec{Start: 0, End: 499, HasStart: true, HasEnd: true}},
		{"space separator", "bytes 0-499", false, Spec{Start: 0, End: 499, HasStart: true, HasEnd: true}},
		{"uppercase unit", "BYTES=0-499", false, Spec{Start: 0, End: 499, HasStart: true, HasEnd: true}},
		{"empty header", "", true, Spec{}},
		{"garbage", "bananas", true, Spec{}},
		{"no digits at all", "bytes=-", true, Spec{}},
		{"wrong unit", "lines=0-10", true, Spec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.header)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Parse(%q) = %+v, want nil", tt.header, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Parse(%q) = nil, want %+v", tt.header, tt.wantSpec)
			}
			if *got != tt.wantSpec {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.header, *got, tt.wantSpec)
			}
		})
	}
}

func TestSpecResolve(t *testing.T) {
	const length = 10000

	tests := []struct {
		name      string
		spec      Spec
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{"explicit range", Spec{Start: 0, End: 499, HasStart: true, HasEnd: true}, 0, 499, false},
		{"open end uses last byte", Spec{Start: 9000, HasStart: true}, 9000, 9999, false},
		{"open start uses zero", Spec{End: 499, HasEnd: true}, 0, 499, false},
		{"start beyond end", Spec{Start: 500, End: 100, HasStart: true, HasEnd: true}, 0, 0, true},
		{"end at or beyond length", Spec{Start: 0, End: 10000, HasStart: true, HasEnd: true}, 0, 0, true},
		{"negative start", Spec{Start: -1, HasStart: true}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := tt.spec.Resolve(length)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve() err = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Resolve() = (%d, %d), want (%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
