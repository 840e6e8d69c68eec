package weather

import "testing"

func TestLocationQueryValidate(t *testing.T) {
	c := Coordinates{Lat: 1, Lon: 2}

	if err := CityQuery("Paris").Validate(); err != nil {
		t.Fatalf("city query: unexpected error %v", err)
	}
	if err := CoordinatesQuery(c).Validate(); err != nil {
		t.Fatalf("coordinates query: unexpected error %v", err)
	}
	if err := CityQuery("   ").Validate(); err == nil {
		t.Fatalf("expected error for blank city")
	}
	if err := (LocationQuery{City: "Paris", Coordinates: &c}).Validate(); err == nil {
		t.Fatalf("expected error when both representations are set")
	}
}

func TestLocationKey(t *testing.T) {
	a := Location{City: "São Paulo", Country: "BR"}
	b := Location{City: " são paulo", Country: "br "}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %q and %q", a.Key(), b.Key())
	}
}
