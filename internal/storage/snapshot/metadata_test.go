package snapshot

import "testing"

func TestId_String(t *testing.T) {
	id := NewId(10, 2, 100, 50)
	if got, want := id.String(), "10-2-100-50"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseId(t *testing.T) {
	id, err := ParseId("10-2-100-50")
	if err != nil {
		t.Fatal(err)
	}
	want := NewId(10, 2, 100, 50)
	if id != want {
		t.Errorf("ParseId() = %+v, want %+v", id, want)
	}
}

func TestParseId_Invalid(t *testing.T) {
	cases := []string{"", "1-2-3", "1-2-3-4-5", "a-2-3-4", "1-2-3-"}
	for _, c := range cases {
		if _, err := ParseId(c); err == nil {
			t.Errorf("ParseId(%q) expected error, got nil", c)
		}
	}
}

func TestId_Compare(t *testing.T) {
	cases := []struct {
		a, b Id
		want int
	}{
		{NewId(1, 0, 0, 0), NewId(2, 0, 0, 0), -1},
		{NewId(2, 0, 0, 0), NewId(1, 0, 0, 0), 1},
		{NewId(1, 1, 1, 1), NewId(1, 1, 1, 1), 0},
		{NewId(1, 2, 0, 0), NewId(1, 1, 99, 99), 1},
		{NewId(1, 1, 2, 0), NewId(1, 1, 1, 99), 1},
		{NewId(1, 1, 1, 2), NewId(1, 1, 1, 3), -1},
	}

	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestId_NewerThan(t *testing.T) {
	older := NewId(1, 0, 0, 0)
	newer := NewId(2, 0, 0, 0)

	if !newer.NewerThan(older) {
		t.Error("expected newer.NewerThan(older) to be true")
	}
	if older.NewerThan(newer) {
		t.Error("expected older.NewerThan(newer) to be false")
	}
	if older.NewerThan(older) {
		t.Error("an id is never newer than itself")
	}
}

func TestSplitPendingName(t *testing.T) {
	idPart, seq, ok := splitPendingName("10-2-100-50-3")
	if !ok {
		t.Fatal("expected ok")
	}
	if idPart != "10-2-100-50" || seq != 3 {
		t.Errorf("got (%q, %d), want (%q, %d)", idPart, seq, "10-2-100-50", 3)
	}

	if _, _, ok := splitPendingName("no-sequence-suffix-here"); ok {
		t.Error("expected ok=false for non-numeric suffix")
	}
}
