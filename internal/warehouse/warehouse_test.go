package warehouse

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, `
seller_name: GreenInovics
seller_address: Chennai Warehouse Address
seller_invoice: INV001
products_desc: GreenInovics Products
return:
  name: GreenInovics
  address: Chennai Warehouse Address
  pin: "600001"
  city: Chennai
  state: Tamil Nadu
  phone: "8668165772"
`)

	profile, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if profile.SellerName != "GreenInovics" {
		t.Fatalf("SellerName = %q", profile.SellerName)
	}
	if profile.Return.Country != "India" {
		t.Fatalf("Return.Country = %q, want default India", profile.Return.Country)
	}
}

func TestLoadRejectsIncompleteProfile(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, `
seller_name: GreenInovics
return:
  city: Chennai
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for incomplete profile")
	}
}
