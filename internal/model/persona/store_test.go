package persona_test

import (
	"testing"

	"github.com/echomentor/backend/internal/model/persona"
)

func TestSeedHasFivePersonas(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	if got := len(store.List()); got != 5 {
		t.Fatalf("expected 5 personas, got %d", got)
	}
}

func TestResolveVariantKai(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	if v := store.ResolveVariant("Kai"); v != persona.VariantComfort {
		t.Fatalf("Kai should resolve to %s, got %s", persona.VariantComfort, v)
	}
}

func TestResolveVariantUnknownFallsBack(t *testing.T) {
	store := persona.NewMemoryStore(persona.Seed())
	if v := store.ResolveVariant("nobody"); v != persona.DefaultVariant {
		t.Fatalf("unknown persona should resolve to default, got %s", v)
	}
	if v := store.ResolveVariant(""); v != persona.DefaultVariant {
		t.Fatalf("empty persona should resolve to default, got %s", v)
	}
}

func TestSeedVoicesAreDistinct(t *testing.T) {
	seen := map[string]string{}
	for _, p := range persona.Seed() {
		if prev, ok := seen[p.VoiceID]; ok {
			t.Fatalf("voice %s assigned to both %s and %s", p.VoiceID, prev, p.Name)
		}
		seen[p.VoiceID] = p.Name
	}
}
