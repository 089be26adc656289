package dates

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtract_SameMonthRange(t *testing.T) {
	start, end := Extract("15-17 марта 2026")
	if start == nil || end == nil {
		t.Fatalf("got start=%v end=%v", start, end)
	}
	if !start.Equal(day(2026, time.March, 15)) || !end.Equal(day(2026, time.March, 17)) {
		t.Errorf("got %v - %v", start, end)
	}
}

func TestExtract_CrossMonthRange(t *testing.T) {
	start, end := Extract("с 30 марта по 2 апреля 2026")
	if start == nil || end == nil {
		t.Fatalf("got start=%v end=%v", start, end)
	}
	if !start.Equal(day(2026, time.March, 30)) || !end.Equal(day(2026, time.April, 2)) {
		t.Errorf("got %v - %v", start, end)
	}
}

func TestExtract_CrossMonthSameMonthAllowed(t *testing.T) {
	start, end := Extract("с 15 марта по 17 марта 2026")
	if start == nil || end == nil {
		t.Fatalf("got start=%v end=%v", start, end)
	}
	if !start.Equal(day(2026, time.March, 15)) || !end.Equal(day(2026, time.March, 17)) {
		t.Errorf("got %v - %v", start, end)
	}
}

func TestExtract_SingleDateWithYear(t *testing.T) {
	start, end := Extract("Выставка откроется 10 апреля 2026 года")
	if start == nil {
		t.Fatal("got nil start")
	}
	if !start.Equal(day(2026, time.April, 10)) {
		t.Errorf("got %v", start)
	}
	if end != nil {
		t.Errorf("single date must have nil end, got %v", end)
	}
}

func TestExtract_SingleDateNoYearUsesCurrentYear(t *testing.T) {
	start, _ := Extract("20 ноября")
	if start == nil {
		t.Fatal("got nil start")
	}
	want := day(time.Now().Year(), time.November, 20)
	if !start.Equal(want) {
		t.Errorf("got %v, want %v", start, want)
	}
}

func TestExtract_DeclinedMonthForms(t *testing.T) {
	cases := []struct {
		text string
		want time.Month
	}{
		{"5 января 2026", time.January},
		{"5 февраля 2026", time.February},
		{"5 мая 2026", time.May},
		{"5 августа 2026", time.August},
		{"5 сентября 2026", time.September},
	}
	for _, c := range cases {
		start, _ := Extract(c.text)
		if start == nil {
			t.Errorf("Extract(%q) = nil", c.text)
			continue
		}
		if start.Month() != c.want {
			t.Errorf("Extract(%q) month = %v, want %v", c.text, start.Month(), c.want)
		}
	}
}

func TestExtract_EnglishRange(t *testing.T) {
	start, end := Extract("March 10-12, 2026")
	if start == nil || end == nil {
		t.Fatalf("got start=%v end=%v", start, end)
	}
	if !start.Equal(day(2026, time.March, 10)) || !end.Equal(day(2026, time.March, 12)) {
		t.Errorf("got %v - %v", start, end)
	}
}

func TestExtract_ISO(t *testing.T) {
	start, end := Extract("2026-09-01")
	if start == nil || !start.Equal(day(2026, time.September, 1)) {
		t.Errorf("got %v", start)
	}
	if end != nil {
		t.Errorf("got end %v, want nil", end)
	}
}

func TestExtract_NumericDMY(t *testing.T) {
	start, _ := Extract("Дата проведения: 01.09.2026")
	if start == nil || !start.Equal(day(2026, time.September, 1)) {
		t.Errorf("got %v", start)
	}
}

func TestExtract_FullNumericRange(t *testing.T) {
	start, end := Extract("10.05.2026 - 12.05.2026")
	if start == nil || end == nil {
		t.Fatalf("got start=%v end=%v", start, end)
	}
	if !start.Equal(day(2026, time.May, 10)) || !end.Equal(day(2026, time.May, 12)) {
		t.Errorf("got %v - %v", start, end)
	}
}

func TestExtract_RejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"скоро",
		"31 апреля 2026", // день переполняет месяц
		"10 грудня 2026", // не распознаваемый месяц
	}
	for _, text := range cases {
		if start, end := Extract(text); start != nil || end != nil {
			t.Errorf("Extract(%q) = %v, %v; want nil, nil", text, start, end)
		}
	}
}
