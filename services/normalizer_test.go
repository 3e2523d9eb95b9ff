package services

import (
	"strconv"
	"testing"

	"autoria-scraper/models"
)

func TestNormalizeOdometer(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"120 тис км", 120000},
		{"120 тис. км", 120000},
		{"85тис км", 85000},
		{"200 тыс км", 200000},
		{"95 000 км", 95000},
		{"95\u00a0000 км", 95000},
		{"1,234 км", 1234},
		{"999999", 999999},
		{"1000000", models.MaxOdometerKm},
		{"12 345 678 км", models.MaxOdometerKm},
		{"5000 тис км", models.MaxOdometerKm},
		{"без пробігу", 0},
		{"", 0},
		{"   ", 0},
	}

	for _, tt := range tests {
		got := NormalizeOdometer(tt.raw)
		if got != tt.want {
			t.Errorf("NormalizeOdometer(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeOdometerThousandProperty(t *testing.T) {
	for n := 0; n <= 999; n += 37 {
		raw := strconv.Itoa(n) + " тис км"
		if got := NormalizeOdometer(raw); got != n*1000 {
			t.Errorf("NormalizeOdometer(%q) = %d; want %d", raw, got, n*1000)
		}
	}
}

func TestNormalizeOdometerNeverExceedsCap(t *testing.T) {
	for _, raw := range []string{"1000000", "2500000 км", "99999999999999999999999"} {
		if got := NormalizeOdometer(raw); got != models.MaxOdometerKm {
			t.Errorf("NormalizeOdometer(%q) = %d; want %d", raw, got, models.MaxOdometerKm)
		}
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"250 000", 250000},
		{"12 500 $", 12500},
		{"$ 9 999", 9999},
		{"", 0},
		{"договірна", 0},
		{"99999999999999999999999", 0},
	}

	for _, tt := range tests {
		got := ParsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		digits string
		want   string
	}{
		{"0671234567", "380671234567"},
		{"380671234567", "380671234567"},
		{"80671234567", "30671234567"},
		{"971234567", "380971234567"},
		{"671234567", "671234567"},
		{"12345", "12345"},
		{"", ""},
	}

	for _, tt := range tests {
		got := NormalizePhone(tt.digits)
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q; want %q", tt.digits, got, tt.want)
		}
	}
}

func TestNormalizePhoneProperties(t *testing.T) {
	for _, in := range []string{"0501112233", "0000000000", "0991234567"} {
		if got := NormalizePhone(in); got != "38"+in {
			t.Errorf("NormalizePhone(%q) = %q; want %q", in, got, "38"+in)
		}
	}
	for _, in := range []string{"931234567", "900000000", "999999999"} {
		if got := NormalizePhone(in); got != "380"+in {
			t.Errorf("NormalizePhone(%q) = %q; want %q", in, got, "380"+in)
		}
	}
}

func TestPhoneFromFormatted(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"(067) 123 45 67", "380671234567"},
		{"+38 (050) 111-22-33", "380501112233"},
		{"97 123 45 67", "380971234567"},
		{"приховано", ""},
	}

	for _, tt := range tests {
		if got := PhoneFromFormatted(tt.raw); got != tt.want {
			t.Errorf("PhoneFromFormatted(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestExtractPlate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  AA 1234 BB  ", "AA 1234 BB"},
		{"Номер: КА1234ВС перевірено", "КА1234ВС"},
		{"BI 0001 ІЇ", "BI 0001 ІЇ"},
		{"  не вказано ", "не вказано"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractPlate(tt.raw); got != tt.want {
			t.Errorf("ExtractPlate(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFindVIN(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"VIN: WVWZZZ1KZAW000001", "WVWZZZ1KZAW000001"},
		{"VIN-код JTDKB20U993123456 перевірено", "JTDKB20U993123456"},
		{"VIN: WVWZZZ1KZAW00000I", ""},
		{"VIN: 12345", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FindVIN(tt.raw); got != tt.want {
			t.Errorf("FindVIN(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  Volkswagen   Golf\n 2010 ", "Volkswagen Golf 2010"},
		{"\tАндрій ", "Андрій"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.raw); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}
