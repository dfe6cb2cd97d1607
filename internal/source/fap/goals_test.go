package fap

import (
	"errors"
	"testing"

	"github.com/futbolbase/futbolbase/internal/source"
)

const actaFixture = `
<div class="acta">
  <ul class="list-unstyled acta-goles">
    <li>10' - PEDRO SANTANA</li>
    <li>40′ - AIRAM GUEDES</li>
  </ul>
  <ul class="list-unstyled acta-goles">
    <li>12' - KILIAN HERNANDEZ</li>
  </ul>
</div>`

func TestParseActaRunningScore(t *testing.T) {
	events, err := ParseActa(actaFixture)
	if err != nil {
		t.Fatalf("ParseActa: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	want := []struct {
		minute  int
		player  string
		side    string
		running string
	}{
		{10, "PEDRO SANTANA", source.SideHome, "1-0"},
		{12, "KILIAN HERNANDEZ", source.SideAway, "1-1"},
		{40, "AIRAM GUEDES", source.SideHome, "2-1"},
	}
	for i, w := range want {
		ev := events[i]
		if ev.Minute != w.minute || ev.Player != w.player || ev.Side != w.side || ev.RunningScore != w.running {
			t.Fatalf("event %d = %+v, want %+v", i, ev, w)
		}
	}
}

func TestParseActaEmptySides(t *testing.T) {
	html := `<ul class="acta-goles"></ul><ul class="acta-goles"></ul>`
	events, err := ParseActa(html)
	if err != nil {
		t.Fatalf("ParseActa: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestParseActaWrongBlockCount(t *testing.T) {
	html := `<ul class="acta-goles"><li>10' - ALGUIEN</li></ul>`
	if _, err := ParseActa(html); !errors.Is(err, source.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}
