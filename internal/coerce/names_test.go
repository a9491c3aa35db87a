package coerce

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"María Pérez", "maria perez"},
		{"  Dra.  MARÍA   Pérez ", "dra. maria perez"},
		{"Núñez", "nunez"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("Juan Pérez", "juan perez"); got != 1 {
		t.Errorf("Similarity(accent variant) = %v, want 1", got)
	}
	if got := Similarity("", "juan"); got != 0 {
		t.Errorf("Similarity(empty) = %v, want 0", got)
	}
	close := Similarity("Maria Gonzales", "María González")
	far := Similarity("Maria Gonzales", "Pedro Rodriguez")
	if close <= far {
		t.Errorf("Similarity close = %v, far = %v", close, far)
	}
	if close < DefaultMatchThreshold {
		t.Errorf("Similarity close = %v, want >= %v", close, DefaultMatchThreshold)
	}
}

func TestMatchName(t *testing.T) {
	roster := []Candidate{
		{ID: 101, Name: "María González"},
		{ID: 102, Name: "Pedro Rodríguez"},
		{ID: 103, Name: "Ana Ruiz"},
	}

	tests := []struct {
		name      string
		input     string
		threshold float64
		wantOK    bool
		wantID    int64
	}{
		{name: "exact after folding", input: "maria gonzalez", wantOK: true, wantID: 101},
		{name: "one letter drift", input: "Maria Gonzales", wantOK: true, wantID: 101},
		{name: "second candidate", input: "Pedro Rodriguez", wantOK: true, wantID: 102},
		{name: "unrelated name", input: "Lucía Fernández", wantOK: false},
		{name: "strict threshold rejects drift", input: "Maria Gonzales", threshold: 0.99, wantOK: false},
		{name: "empty name", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchName(tt.input, roster, tt.threshold)
			if ok != tt.wantOK {
				t.Fatalf("MatchName(%q) ok = %v (score %v), want %v", tt.input, ok, got.Score, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("MatchName(%q) = %d, want %d", tt.input, got.ID, tt.wantID)
			}
		})
	}
}

func TestMatchName_TiesKeepFirst(t *testing.T) {
	roster := []Candidate{{ID: 1, Name: "Ana Ruiz"}, {ID: 2, Name: "ana ruiz"}}
	got, ok := MatchName("Ana Ruiz", roster, 0)
	if !ok || got.ID != 1 {
		t.Errorf("MatchName tie = %+v, %v, want ID 1", got, ok)
	}
}

func TestMatchName_NoCandidates(t *testing.T) {
	if _, ok := MatchName("Ana", nil, 0); ok {
		t.Error("MatchName with no candidates should not match")
	}
}
