package testutil

import (
	"testing"

	najilaboule "github.com/atimot/najilaboule"
	"github.com/atimot/najilaboule/internal/i18n"
)

// Store loads the embedded production locales.
func Store(t testing.TB) *i18n.Store {
	t.Helper()

	s, err := i18n.Load(najilaboule.Locales, "locales", "ja")
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	return s
}
