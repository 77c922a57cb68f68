package identity

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Role identifies a hub role. Values are lowercase.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleContractor Role = "contractor"
	RoleCustomer   Role = "customer"
	RoleCenter     Role = "center"
	RoleCrew       Role = "crew"
	RoleWarehouse  Role = "warehouse"
)

// Definition describes how identifiers for a role are shaped and stored.
type Definition struct {
	Role        Role
	Prefix      string
	Aliases     []string
	Table       string
	IDColumn    string
	Pattern     *regexp.Regexp
	MetadataKey string
}

var catalog = map[Role]Definition{
	RoleAdmin: {
		Role:    RoleAdmin,
		Prefix:  "ADM-",
		Pattern: regexp.MustCompile(`^ADM-\d+$`),
	},
	RoleManager: {
		Role:        RoleManager,
		Prefix:      "MGR-",
		Table:       "managers",
		IDColumn:    "manager_id",
		Pattern:     regexp.MustCompile(`^MGR-\d+$`),
		MetadataKey: "managerId",
	},
	RoleContractor: {
		Role:        RoleContractor,
		Prefix:      "CON-",
		Table:       "contractors",
		IDColumn:    "contractor_id",
		Pattern:     regexp.MustCompile(`^CON-\d+$`),
		MetadataKey: "contractorId",
	},
	RoleCustomer: {
		Role:        RoleCustomer,
		Prefix:      "CUS-",
		Table:       "customers",
		IDColumn:    "customer_id",
		Pattern:     regexp.MustCompile(`^CUS-\d+$`),
		MetadataKey: "customerId",
	},
	RoleCenter: {
		Role:        RoleCenter,
		Prefix:      "CEN-",
		Aliases:     []string{"CTR-"},
		Table:       "centers",
		IDColumn:    "center_id",
		Pattern:     regexp.MustCompile(`^(CEN|CTR)-\d+$`),
		MetadataKey: "centerId",
	},
	RoleCrew: {
		Role:        RoleCrew,
		Prefix:      "CRW-",
		Table:       "crew",
		IDColumn:    "crew_id",
		Pattern:     regexp.MustCompile(`^CRW-\d+$`),
		MetadataKey: "crewId",
	},
	RoleWarehouse: {
		Role:        RoleWarehouse,
		Prefix:      "WAR-",
		Aliases:     []string{"WHS-"},
		Table:       "warehouses",
		IDColumn:    "warehouse_id",
		Pattern:     regexp.MustCompile(`^(WAR|WHS)-\d+$`),
		MetadataKey: "warehouseId",
	},
}

// Normalize trims and uppercases an identifier. Blank input yields "".
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// NormalizePtr normalizes an optional identifier.
func NormalizePtr(value *string) string {
	if value == nil {
		return ""
	}
	return Normalize(*value)
}

// ParseRole converts free-form input into a known role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	_, ok := catalog[role]
	return role, ok
}

// Lookup returns the catalog definition for a role.
func Lookup(role Role) (Definition, bool) {
	def, ok := catalog[role]
	return def, ok
}

// HubRoles lists the roles backed by an entity table.
func HubRoles() []Role {
	return []Role{RoleManager, RoleContractor, RoleCustomer, RoleCenter, RoleCrew, RoleWarehouse}
}

// RoleFromID infers the role from an identifier prefix.
func RoleFromID(id string) (Role, bool) {
	normalized := Normalize(id)
	for role, def := range catalog {
		if strings.HasPrefix(normalized, def.Prefix) {
			return role, true
		}
		for _, alias := range def.Aliases {
			if strings.HasPrefix(normalized, alias) {
				return role, true
			}
		}
	}
	return "", false
}

// Valid reports whether id matches the pattern for role.
func Valid(role Role, id string) bool {
	def, ok := catalog[role]
	if !ok {
		return false
	}
	return def.Pattern.MatchString(Normalize(id))
}

// Format builds the canonical identifier for a sequence number, e.g. MGR-012.
func Format(role Role, sequence int) (string, error) {
	def, ok := catalog[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return fmt.Sprintf("%s%03d", def.Prefix, sequence), nil
}

// Sequence extracts the numeric suffix of an identifier.
func Sequence(id string) (int, bool) {
	normalized := Normalize(id)
	idx := strings.LastIndex(normalized, "-")
	if idx < 0 || idx == len(normalized)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(normalized[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// CorrelationKeys returns the metadata keys that may reference an actor of the given role.
// managerId and cksManager apply to every role; each role adds its own key.
func CorrelationKeys(role Role) []string {
	keys := []string{"managerId", "cksManager"}
	if def, ok := catalog[role]; ok && def.MetadataKey != "" && def.MetadataKey != "managerId" {
		keys = append(keys, def.MetadataKey)
	}
	return keys
}

// Set is an unordered collection of normalized identifiers.
type Set map[string]struct{}

// NewSet builds a set from the given identifiers.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts identifiers after normalization; blanks are dropped.
func (s Set) Add(ids ...string) {
	for _, id := range ids {
		if normalized := Normalize(id); normalized != "" {
			s[normalized] = struct{}{}
		}
	}
}

// AddPtr inserts an optional identifier.
func (s Set) AddPtr(id *string) {
	if id != nil {
		s.Add(*id)
	}
}

// Has reports membership, case-insensitively.
func (s Set) Has(id string) bool {
	normalized := Normalize(id)
	if normalized == "" {
		return false
	}
	_, ok := s[normalized]
	return ok
}

// Slice returns the members in sorted order.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets contain the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}
