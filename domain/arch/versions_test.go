package arch

import (
	"errors"
	"strings"
	"testing"

	"github.com/kompox/pgcluster/domain/model"
)

func TestVersionMatrix_Resolve(t *testing.T) {
	m := VersionMatrix{
		Valid:                 []VersionPair{{"13", "6"}, {"14", "6"}},
		Default:               VersionPair{"14", "6"},
		ReplicationByPostgres: map[string]string{"13": "6"},
	}

	tests := []struct {
		name        string
		postgres    string
		replication string
		want        VersionPair
		wantErr     bool
	}{
		{name: "neither", want: VersionPair{"14", "6"}},
		{name: "postgres only", postgres: "13", want: VersionPair{"13", "6"}},
		{name: "postgres only without default entry", postgres: "14", want: VersionPair{"14", "6"}},
		{name: "replication only", replication: "6", want: VersionPair{"14", "6"}},
		{name: "both valid", postgres: "13", replication: "6", want: VersionPair{"13", "6"}},
		{name: "unknown postgres", postgres: "15", wantErr: true},
		{name: "contradictory pair", postgres: "13", replication: "5", wantErr: true},
		{name: "unknown replication", replication: "7", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(tt.postgres, tt.replication)
			if tt.wantErr {
				if !errors.Is(err, model.ErrConfiguration) {
					t.Fatalf("Resolve() error = %v, want configuration error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersionMatrix_ResolveErrorNamesBothValues(t *testing.T) {
	m := VersionMatrix{Valid: []VersionPair{{"13", "6"}}}
	_, err := m.Resolve("12", "5")
	if err == nil || !strings.Contains(err.Error(), `"12"`) || !strings.Contains(err.Error(), `"5"`) {
		t.Fatalf("error = %v, want both versions named", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	for _, a := range c.Architectures {
		if !a.Versions.Contains(a.Versions.Default) {
			t.Errorf("%s: default %v is not a valid pair", a.Tag, a.Versions.Default)
		}
		for pg, r := range a.Versions.ReplicationByPostgres {
			if !a.Versions.Contains(VersionPair{pg, r}) {
				t.Errorf("%s: default map entry %s->%s is not valid", a.Tag, pg, r)
			}
		}
		for _, name := range a.DefaultRepositories {
			if _, ok := c.Repository(name); !ok {
				t.Errorf("%s: unknown default repository %q", a.Tag, name)
			}
		}
		if a.Next != "" {
			if _, err := c.Lookup(string(a.Next)); err != nil {
				t.Errorf("%s: next architecture: %v", a.Tag, err)
			}
		}
	}
	if _, err := c.Lookup("nope"); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("Lookup(nope) = %v", err)
	}

	m1, _ := c.Lookup("M1")
	got, err := m1.Versions.Resolve("15", "")
	if err != nil || got.Postgres != "15" || got.Replication != "" {
		t.Errorf("M1 resolve = %v, %v", got, err)
	}

	pgd, _ := c.Lookup("PGD-Always-ON")
	if !pgd.SupportsRouting() || pgd.RoutingKey != "enable_proxy_routing" {
		t.Errorf("PGD-Always-ON routing = %q", pgd.RoutingKey)
	}
	got, err = pgd.Versions.Resolve("13", "")
	if err != nil || got.Replication != "5" {
		t.Errorf("PGD-Always-ON resolve(13) = %v, %v", got, err)
	}

	a := DefaultCatalog()
	a.Architectures[0].Tag = "changed"
	if b := DefaultCatalog(); b.Architectures[0].Tag != M1 {
		t.Error("DefaultCatalog must return independent copies")
	}
}
