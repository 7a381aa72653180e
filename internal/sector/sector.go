// Package sector holds the static reference table of business sectors and
// the directory tags used to query each of them.
package sector

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

func tag(key, value string) prospect.Tag {
	return prospect.Tag{Key: key, Value: value}
}

var table = []prospect.Sector{
	{Code: "coiffeur", Label: "Coiffeur", Primary: tag("shop", "hairdresser"), Alternates: []prospect.Tag{tag("shop", "barber")}},
	{Code: "boulangerie", Label: "Boulangerie", Primary: tag("shop", "bakery"), Alternates: []prospect.Tag{tag("shop", "pastry")}},
	{Code: "restaurant", Label: "Restaurant", Primary: tag("amenity", "restaurant"), Alternates: []prospect.Tag{tag("amenity", "fast_food")}},
	{Code: "cafe-bar", Label: "Café / Bar", Primary: tag("amenity", "cafe"), Alternates: []prospect.Tag{tag("amenity", "bar"), tag("amenity", "pub")}},
	{Code: "hotel", Label: "Hôtel", Primary: tag("tourism", "hotel"), Alternates: []prospect.Tag{tag("tourism", "guest_house")}},
	{Code: "plombier", Label: "Plombier", Primary: tag("craft", "plumber"), Alternates: []prospect.Tag{tag("craft", "hvac")}},
	{Code: "electricien", Label: "Électricien", Primary: tag("craft", "electrician")},
	{Code: "menuisier", Label: "Menuisier", Primary: tag("craft", "carpenter"), Alternates: []prospect.Tag{tag("craft", "joiner")}},
	{Code: "peintre", Label: "Peintre en bâtiment", Primary: tag("craft", "painter")},
	{Code: "garage", Label: "Garage automobile", Primary: tag("shop", "car_repair"), Alternates: []prospect.Tag{tag("craft", "car_repair")}},
	{Code: "fleuriste", Label: "Fleuriste", Primary: tag("shop", "florist")},
	{Code: "boucherie", Label: "Boucherie", Primary: tag("shop", "butcher"), Alternates: []prospect.Tag{tag("shop", "deli")}},
	{Code: "esthetique", Label: "Institut de beauté", Primary: tag("shop", "beauty"), Alternates: []prospect.Tag{tag("shop", "massage")}},
	{Code: "fitness", Label: "Salle de sport", Primary: tag("leisure", "fitness_centre"), Alternates: []prospect.Tag{tag("leisure", "sports_centre")}},
	{Code: "dentiste", Label: "Dentiste", Primary: tag("amenity", "dentist"), Alternates: []prospect.Tag{tag("healthcare", "dentist")}},
	{Code: "medecin", Label: "Médecin", Primary: tag("amenity", "doctors"), Alternates: []prospect.Tag{tag("healthcare", "doctor")}},
	{Code: "kine", Label: "Kinésithérapeute", Primary: tag("healthcare", "physiotherapist")},
	{Code: "veterinaire", Label: "Vétérinaire", Primary: tag("amenity", "veterinary")},
	{Code: "opticien", Label: "Opticien", Primary: tag("shop", "optician")},
	{Code: "avocat", Label: "Avocat", Primary: tag("office", "lawyer")},
	{Code: "comptable", Label: "Expert-comptable", Primary: tag("office", "accountant"), Alternates: []prospect.Tag{tag("office", "tax_advisor")}},
	{Code: "immobilier", Label: "Agence immobilière", Primary: tag("office", "estate_agent"), Alternates: []prospect.Tag{tag("shop", "estate_agent")}},
	{Code: "photographe", Label: "Photographe", Primary: tag("craft", "photographer"), Alternates: []prospect.Tag{tag("shop", "photo")}},
	{Code: "auto-ecole", Label: "Auto-école", Primary: tag("amenity", "driving_school")},
	{Code: "pressing", Label: "Pressing", Primary: tag("shop", "dry_cleaning"), Alternates: []prospect.Tag{tag("shop", "laundry")}},
}

// All returns a copy of the sector table in display order.
func All() []prospect.Sector {
	out := make([]prospect.Sector, len(table))
	copy(out, table)
	return out
}

// Resolve finds a sector by its code or display label. Matching ignores
// case, accents and surrounding whitespace.
func Resolve(identifier string) (prospect.Sector, bool) {
	key := fold(identifier)
	if key == "" {
		return prospect.Sector{}, false
	}
	for _, s := range table {
		if fold(s.Code) == key || fold(s.Label) == key {
			return s, true
		}
	}
	return prospect.Sector{}, false
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return strings.ToLower(out)
}
