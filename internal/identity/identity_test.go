package identity

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantID         string
		wantStatus     Status
		wantValid      bool
		wantSuspicious bool
		wantReason     string // substring
		wantDisplay    string
	}{
		{
			name:        "seven digit body gets check digit",
			input:       "3282071",
			wantID:      "32820715",
			wantStatus:  StatusCorrected,
			wantReason:  "calculated 5",
			wantDisplay: "3.282.071-5",
		},
		{
			name:        "seven digit body with punctuation",
			input:       "3.282.071",
			wantID:      "32820715",
			wantStatus:  StatusCorrected,
			wantDisplay: "3.282.071-5",
		},
		{
			name:       "eight digits with matching check digit",
			input:      "45728634",
			wantID:     "45728634",
			wantStatus: StatusValid,
			wantValid:  true,
		},
		{
			name:       "display form with matching check digit",
			input:      "4.572.863-4",
			wantID:     "45728634",
			wantStatus: StatusValid,
			wantValid:  true,
		},
		{
			name:           "eight digits with wrong check digit",
			input:          "45728635",
			wantID:         "45728634",
			wantStatus:     StatusSuspicious,
			wantSuspicious: true,
			wantReason:     "provided 5, calculated 4",
			wantDisplay:    "4.572.863-4",
		},
		{
			name:           "six digits always suspicious",
			input:          "482910",
			wantStatus:     StatusSuspicious,
			wantSuspicious: true,
			wantReason:     ReasonTruncated,
		},
		{
			name:           "timestamp after colon is ignored",
			input:          "999999: 10/18/2019 08:38:00",
			wantStatus:     StatusSuspicious,
			wantSuspicious: true,
			wantReason:     ReasonTruncated,
		},
		{
			name:        "timestamp after colon on a full body",
			input:       "3282071: 10/18/2019 08:38:00",
			wantID:      "32820715",
			wantStatus:  StatusCorrected,
			wantDisplay: "3.282.071-5",
		},
		{
			name:        "leading zero kept",
			input:       "0482910",
			wantStatus:  StatusCorrected,
			wantID:      "0482910" + fmt.Sprint(mustCheck(t, "0482910")),
			wantDisplay: Display("0482910" + fmt.Sprint(mustCheck(t, "0482910"))),
		},
		{
			name:       "empty",
			input:      "   ",
			wantStatus: StatusInvalid,
			wantReason: ReasonEmpty,
		},
		{
			name:       "undefined as text",
			input:      "Undefined",
			wantStatus: StatusInvalid,
			wantReason: ReasonEmpty,
		},
		{
			name:       "too short",
			input:      "12345",
			wantStatus: StatusInvalid,
			wantReason: "invalid length: 5 digits",
		},
		{
			name:       "too long",
			input:      "123456789",
			wantStatus: StatusInvalid,
			wantReason: "invalid length: 9 digits",
		},
		{
			name:       "letters only",
			input:      "abc",
			wantStatus: StatusInvalid,
			wantReason: "invalid length: 0 digits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.input)
			if got.RawID != tt.input {
				t.Errorf("RawID = %q, want %q", got.RawID, tt.input)
			}
			if got.NormalizedID != tt.wantID {
				t.Errorf("NormalizedID = %q, want %q", got.NormalizedID, tt.wantID)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.Suspicious != tt.wantSuspicious {
				t.Errorf("Suspicious = %v, want %v", got.Suspicious, tt.wantSuspicious)
			}
			if !strings.Contains(got.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want substring %q", got.Reason, tt.wantReason)
			}
			if got.CorrectedDisplay != tt.wantDisplay {
				t.Errorf("CorrectedDisplay = %q, want %q", got.CorrectedDisplay, tt.wantDisplay)
			}
		})
	}
}

func TestValidate_NormalizedOnlyForComputableLengths(t *testing.T) {
	for _, in := range []string{"", "1", "482910", "12345678901"} {
		if got := Validate(in); got.HasID() {
			t.Errorf("Validate(%q) has id %q, want none", in, got.NormalizedID)
		}
	}
	for _, in := range []string{"3282071", "45728634", "45728635"} {
		if got := Validate(in); !got.HasID() {
			t.Errorf("Validate(%q) has no id", in)
		}
	}
}

func TestCheckDigit_SatisfiesChecksum(t *testing.T) {
	// Every body plus its check digit must sum to a multiple of ten.
	for n := 0; n < 10_000_000; n += 7919 {
		body := fmt.Sprintf("%07d", n)
		check, err := CheckDigit(body)
		if err != nil {
			t.Fatalf("CheckDigit(%q) error = %v", body, err)
		}
		sum := check
		for i := range body {
			sum += int(body[i]-'0') * Weights[i]
		}
		if sum%10 != 0 {
			t.Fatalf("CheckDigit(%q) = %d, weighted sum + check = %d", body, check, sum)
		}
	}
}

func TestCheckDigit_KnownBodies(t *testing.T) {
	tests := map[string]int{
		"3282071": 5,
		"4572863": 4,
	}
	for body, want := range tests {
		got, err := CheckDigit(body)
		if err != nil {
			t.Fatalf("CheckDigit(%q) error = %v", body, err)
		}
		if got != want {
			t.Errorf("CheckDigit(%q) = %d, want %d", body, got, want)
		}
	}
}

func TestCheckDigit_Errors(t *testing.T) {
	for _, body := range []string{"", "123456", "12345678", "12a4567"} {
		if _, err := CheckDigit(body); err == nil {
			t.Errorf("CheckDigit(%q) expected error", body)
		}
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("32820715"); got != "3.282.071-5" {
		t.Errorf("Display = %q", got)
	}
	if got := Display("123"); got != "123" {
		t.Errorf("Display short = %q", got)
	}
}

func mustCheck(t *testing.T, body string) int {
	t.Helper()
	d, err := CheckDigit(body)
	if err != nil {
		t.Fatalf("CheckDigit(%q) error = %v", body, err)
	}
	return d
}
