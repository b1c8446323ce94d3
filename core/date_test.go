package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2025-01-10", want: NewDate(2025, time.January, 10)},
		{in: " 2025-01-10 ", want: NewDate(2025, time.January, 10)},
		{in: "2025-01-10T23:30:00-02:00", want: NewDate(2025, time.January, 11)},
		{in: "10/01/2025", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end"`
	}
	if err := json.Unmarshal([]byte(`{"start":"2025-03-01","end":null}`), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Start.String() != "2025-03-01" || payload.End != nil {
		t.Errorf("got %+v", payload)
	}

	data, _ := json.Marshal(payload)
	if string(data) != `{"start":"2025-03-01","end":null}` {
		t.Errorf("json.Marshal() = %s", data)
	}
	data, _ = json.Marshal(Date{})
	if string(data) != "null" {
		t.Errorf("zero date marshals to %s", data)
	}
}

func TestToday(t *testing.T) {
	orig := NowFunc
	defer func() { NowFunc = orig }()
	NowFunc = func() time.Time { return time.Date(2025, time.May, 4, 23, 59, 0, 0, time.FixedZone("", -3600)) }

	if got := Today(); !got.Equal(NewDate(2025, time.May, 5).Time) {
		t.Errorf("Today() = %v", got)
	}
}

func TestFilterOrderings(t *testing.T) {
	got := FilterOrderings([]DBOrdering{{Field: "email", Ascending: true}, {Field: "password"}}, "email", "role")
	if len(got) != 1 || got[0].String() != "email ASC" {
		t.Errorf("FilterOrderings() = %v", got)
	}
	if FilterOrderings(nil, "email") != nil {
		t.Error("FilterOrderings(nil) should be nil")
	}
}
