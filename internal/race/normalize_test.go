package race

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitWeightChange(t *testing.T) {
	tests := []struct {
		input      string
		wantWeight string
		wantDelta  string
	}{
		{"480+4", "480", "4"},
		{"480-4", "480", "-4"},
		{"480±0", "480", "0"},
		{"480", "-", "-"},
		{"", "-", "-"},
		{"-", "-", "-"},
		{"480+-4", "480", "-4"}, // + wins over -
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			weight, delta := SplitWeightChange(tt.input)
			if weight != tt.wantWeight || delta != tt.wantDelta {
				t.Errorf("SplitWeightChange(%q) = (%q, %q), want (%q, %q)",
					tt.input, weight, delta, tt.wantWeight, tt.wantDelta)
			}
		})
	}
}

func TestSplitPlacedWeight(t *testing.T) {
	tests := []struct {
		input     string
		wantLower string
		wantUpper string
	}{
		{"420|440", "420", "440"},
		{"420", "-", "-"},
		{"-", "-", "-"},
		{"", "-", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lower, upper := SplitPlacedWeight(tt.input)
			if lower != tt.wantLower || upper != tt.wantUpper {
				t.Errorf("SplitPlacedWeight(%q) = (%q, %q), want (%q, %q)",
					tt.input, lower, upper, tt.wantLower, tt.wantUpper)
			}
		})
	}
}

func TestSplitPlaceOdds(t *testing.T) {
	tests := []struct {
		input     string
		wantLower string
		wantUpper string
	}{
		{"1.5 - 2.3", "1.5", "2.3"},
		{"1.5-2.3", "-", "-"},
		{"1.5 - 2.3 - 4.0", "-", "-"},
		{"取消", "-", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lower, upper := SplitPlaceOdds(tt.input)
			if lower != tt.wantLower || upper != tt.wantUpper {
				t.Errorf("SplitPlaceOdds(%q) = (%q, %q), want (%q, %q)",
					tt.input, lower, upper, tt.wantLower, tt.wantUpper)
			}
		})
	}
}

func TestSplitSexAge(t *testing.T) {
	tests := []struct {
		input   string
		wantSex string
		wantAge string
	}{
		{"牡5", "牡", "5"},
		{"牝10", "牝", "10"},
		{"X3", "X", "3"}, // sex code is not validated
		{"", "-", "-"},
		{"-", "-", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sex, age := SplitSexAge(tt.input)
			if sex != tt.wantSex || age != tt.wantAge {
				t.Errorf("SplitSexAge(%q) = (%q, %q), want (%q, %q)", tt.input, sex, age, tt.wantSex, tt.wantAge)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ホクショウ(父)\nキタノ（母）", "ホクショウ父,キタノ母"},
		{"【牡5】<br>鹿毛", "牡5,鹿毛"},
		{"no change", "no change"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripPercent(t *testing.T) {
	if got := StripPercent("12.5%"); got != "12.5" {
		t.Errorf("StripPercent() = %q, want 12.5", got)
	}
	if got := StripPercent("-"); got != "-" {
		t.Errorf("StripPercent() = %q, want -", got)
	}
}

func TestNormalizer_ParsePrizes(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		text    string
		want    PrizeTable
		wantErr bool
	}{
		{
			name:   "ordinal prefixes and separators",
			policy: Strict,
			text:   "1着 100,000円\n2着 35,000円\n\n3着 20,000円\n",
			want:   PrizeTable{100000, 35000, 20000},
		},
		{
			name:   "empty block",
			policy: Strict,
			text:   "",
			want:   PrizeTable{},
		},
		{
			name:    "garbage line strict",
			policy:  Strict,
			text:    "1着 100,000円\n未定",
			wantErr: true,
		},
		{
			name:   "garbage line lenient",
			policy: Lenient,
			text:   "1着 100,000円\n未定",
			want:   PrizeTable{100000, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNormalizer(tt.policy).ParsePrizes(tt.text)
			if tt.wantErr {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("ParsePrizes() error = %v, want *FormatError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePrizes() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePrizes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizer_Dates(t *testing.T) {
	strict := NewNormalizer(Strict)
	lenient := NewNormalizer(Lenient)

	got, err := strict.NormalizeRaceDate("2020年1月2日")
	if err != nil || got != "2020年01月02日" {
		t.Errorf("NormalizeRaceDate() = %q, %v; want 2020年01月02日", got, err)
	}

	got, err = strict.NormalizeBirthday("2015/04/01生")
	if err != nil || got != "2015年04月01日" {
		t.Errorf("NormalizeBirthday() = %q, %v; want 2015年04月01日", got, err)
	}

	if _, err := strict.NormalizeRaceDate("令和2年1月2日"); err == nil {
		t.Error("NormalizeRaceDate() strict should fail on unparsable date")
	}

	got, err = lenient.NormalizeBirthday("不明")
	if err != nil || got != Placeholder {
		t.Errorf("NormalizeBirthday() lenient = %q, %v; want placeholder", got, err)
	}

	// a missing cell is not a format failure
	got, err = strict.NormalizeBirthday("-")
	if err != nil || got != Placeholder {
		t.Errorf("NormalizeBirthday(\"-\") = %q, %v; want placeholder", got, err)
	}
}

func TestPolicy_String(t *testing.T) {
	if Strict.String() != "strict" || Lenient.String() != "lenient" {
		t.Errorf("Policy.String() = %q/%q", Strict, Lenient)
	}
}
