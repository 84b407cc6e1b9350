package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultParsesAndValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Billing.DefaultCost != 100.0 {
		t.Fatalf("default cost = %v", cfg.Billing.DefaultCost)
	}
	if cfg.Stock.DefaultReorder != 10 {
		t.Fatalf("default reorder = %v", cfg.Stock.DefaultReorder)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Shop.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing shop name: expected error")
	}
	cfg = Default()
	cfg.Billing.DefaultCost = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative cost: expected error")
	}
	cfg = Default()
	cfg.Stock.DefaultReorder = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative reorder: expected error")
	}
}

func TestNilReceiverFallbacks(t *testing.T) {
	var cfg *Config
	if got := cfg.DefaultCost(); got != 100.0 {
		t.Fatalf("nil DefaultCost = %v", got)
	}
	if got := cfg.DefaultReorder(); got != 10 {
		t.Fatalf("nil DefaultReorder = %v", got)
	}
}

func TestFromFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "liftbay.yml")
	src := `shop:
  name: Test Shop
  timezone: UTC
billing:
  default_cost: 75.5
stock:
  default_reorder: 3
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := FromFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if cfg.Shop.Name != "Test Shop" || cfg.DefaultCost() != 75.5 || cfg.DefaultReorder() != 3 {
		t.Fatalf("parsed config = %+v", cfg)
	}
	out, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("to yaml: %v", err)
	}
	again, err := FromYAML(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("round trip changed config: %+v vs %+v", again, cfg)
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
