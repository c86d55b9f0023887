package roster

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

type Tier struct {
	Name    string   `yaml:"name"`
	Players []string `yaml:"players"`
}

// ManagerSeed is the starting configuration of one manager. The order of
// seeds in a Roster is the stable manager order used for tie-breaks.
type ManagerSeed struct {
	ID   string `yaml:"id"`
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Coin int    `yaml:"coin"`
}

type Roster struct {
	AdminKey string        `yaml:"admin_key"`
	Tiers    []Tier        `yaml:"tiers"`
	Managers []ManagerSeed `yaml:"managers"`
}

// Default is the built-in roster used when no ROSTER_FILE is set: four tiers of three players
// and three managers with 1000 coin each.
func Default() Roster {
	return Roster{
		AdminKey: "A-999",
		Tiers: []Tier{
			{Name: "A", Players: []string{"경민", "대균", "호준"}},
			{Name: "B", Players: []string{"민재", "현준", "범수"}},
			{Name: "C", Players: []string{"성민", "태연", "선우"}},
			{Name: "D", Players: []string{"진호", "준석", "백건"}},
		},
		Managers: []ManagerSeed{
			{ID: "T01", Key: "T-001", Name: "건우", Coin: 1000},
			{ID: "T02", Key: "T-002", Name: "성무", Coin: 1000},
			{ID: "T03", Key: "T-003", Name: "원교", Coin: 1000},
		},
	}
}

// Load reads a YAML roster file. The result is normalized and validated.
func Load(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("parse roster: %w", err)
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return Roster{}, err
	}
	return r, nil
}

// Normalize returns a copy with every name in Unicode NFC.
func (r Roster) Normalize() Roster {
	out := Roster{AdminKey: r.AdminKey}
	for _, t := range r.Tiers {
		nt := Tier{Name: norm.NFC.String(t.Name)}
		for _, p := range t.Players {
			nt.Players = append(nt.Players, norm.NFC.String(p))
		}
		out.Tiers = append(out.Tiers, nt)
	}
	for _, m := range r.Managers {
		m.Name = norm.NFC.String(m.Name)
		out.Managers = append(out.Managers, m)
	}
	return out
}

// Validate reports every problem in the roster at once. Player names must be
// unique across the whole catalog because manager rosters are keyed by name.
func (r Roster) Validate() error {
	var errs error
	if r.AdminKey == "" {
		errs = multierr.Append(errs, fmt.Errorf("admin_key is empty"))
	}
	if len(r.Managers) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no managers configured"))
	}
	if r.PlayerCount() == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no players configured"))
	}

	tiers := map[string]bool{}
	players := map[string]bool{}
	for _, t := range r.Tiers {
		if t.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("tier with empty name"))
		}
		if tiers[t.Name] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate tier %q", t.Name))
		}
		tiers[t.Name] = true
		for _, p := range t.Players {
			if p == "" {
				errs = multierr.Append(errs, fmt.Errorf("tier %q has a player with empty name", t.Name))
				continue
			}
			if players[p] {
				errs = multierr.Append(errs, fmt.Errorf("duplicate player %q", p))
			}
			players[p] = true
		}
	}

	ids := map[string]bool{}
	keys := map[string]bool{r.AdminKey: true}
	for _, m := range r.Managers {
		if m.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("manager %q has empty id", m.Name))
		}
		if ids[m.ID] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate manager id %q", m.ID))
		}
		ids[m.ID] = true
		if m.Key == "" {
			errs = multierr.Append(errs, fmt.Errorf("manager %q has empty key", m.ID))
		} else if keys[m.Key] {
			errs = multierr.Append(errs, fmt.Errorf("manager %q reuses key %q", m.ID, m.Key))
		}
		keys[m.Key] = true
		if m.Coin < 0 {
			errs = multierr.Append(errs, fmt.Errorf("manager %q has negative coin %d", m.ID, m.Coin))
		}
	}
	return errs
}

func (r Roster) PlayerCount() int {
	n := 0
	for _, t := range r.Tiers {
		n += len(t.Players)
	}
	return n
}
