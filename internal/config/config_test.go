package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ADMIN_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.AdminPassword != "" {
		t.Fatalf("expected empty ADMIN_PASSWORD when unset, got %q", cfg.AdminPassword)
	}
}

func TestLoadPicksCatalogBackend(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "")
	t.Setenv("DATABASE_URL", "")
	if got := Load().CatalogBackend; got != BackendMemory {
		t.Fatalf("expected memory backend by default, got %q", got)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/belajoia")
	if got := Load().CatalogBackend; got != BackendPostgres {
		t.Fatalf("expected DATABASE_URL to select postgres, got %q", got)
	}

	t.Setenv("CATALOG_BACKEND", " Mongo ")
	if got := Load().CatalogBackend; got != BackendMongo {
		t.Fatalf("expected explicit mongo backend, got %q", got)
	}
}

func TestLoadFallsBackOnInvalidDurations(t *testing.T) {
	t.Setenv("SEARCH_CACHE_TTL_SECONDS", "-5")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "abc")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "30")
	t.Setenv("PUBLIC_BASE_URL", "https://loja.example/")

	cfg := Load()
	if cfg.SearchCacheTTL() != time.Minute {
		t.Fatalf("expected default search ttl, got %s", cfg.SearchCacheTTL())
	}
	if cfg.RequestTimeout() != 15*time.Second {
		t.Fatalf("expected default request timeout, got %s", cfg.RequestTimeout())
	}
	if cfg.AccessTokenTTL() != 30*time.Minute {
		t.Fatalf("expected 30m token ttl, got %s", cfg.AccessTokenTTL())
	}
	if cfg.PublicBaseURL != "https://loja.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PublicBaseURL)
	}
}

func TestValidateRequiresBackendSettings(t *testing.T) {
	cases := []Config{
		{CatalogBackend: BackendPostgres},
		{CatalogBackend: BackendMongo},
		{CatalogBackend: BackendFirestore},
		{CatalogBackend: "sqlite"},
	}
	for _, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected %q without settings to be rejected", cfg.CatalogBackend)
		}
	}

	ok := Config{CatalogBackend: BackendMongo, MongoURI: "mongodb://localhost:27017"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected mongo config to pass, got %v", err)
	}
}
