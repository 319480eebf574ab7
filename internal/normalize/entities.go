package normalize

import (
	"regexp"
	"sort"
	"strings"

	"newswatch/internal/domain/entity"
)

// DefaultMaxEntities caps how many entities are kept per article.
const DefaultMaxEntities = 10

var (
	moneyRe = regexp.MustCompile(`(?i)(?:[$€£¥]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:thousand|million|billion|trillion|k|m|bn|b|tn))?|\d[\d,]*(?:\.\d+)?\s?(?:million|billion|trillion)\s(?:dollars|euros|pounds|yen))`)

	percentRe = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:%|percent)`)

	dateRe = regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s\d{1,2}(?:st|nd|rd|th)?(?:,?\s\d{4})?|\b\d{4}-\d{2}-\d{2}\b`)

	// Candidate ticker symbols: short all-caps tokens, optionally exchange
	// prefixed ("NYSE: ACM"). Confirmed only when financial context words
	// appear nearby, otherwise ordinary acronyms flood the set.
	tickerRe = regexp.MustCompile(`\b(?:(?:NYSE|NASDAQ|LSE|TSE)\s?:\s?)?([A-Z]{2,5})\b`)

	// Capitalized word runs: names, organizations, places. Lowercase
	// connectives are allowed mid-run ("Bank of America").
	properRe = regexp.MustCompile(`\b[A-Z][a-zA-Z&.]+(?:\s(?:of|the|de|da|van|von)\s[A-Z][a-zA-Z&.]+|\s[A-Z][a-zA-Z&.]+)*`)
)

var financialContextWords = []string{
	"stock", "stocks", "shares", "ticker", "trading", "traded", "ipo",
	"nyse", "nasdaq", "exchange", "earnings", "dividend", "market cap",
}

var orgSuffixes = []string{
	"inc", "inc.", "corp", "corp.", "co", "co.", "ltd", "ltd.", "llc",
	"plc", "group", "holdings", "bank", "capital", "partners", "ventures",
	"technologies", "systems", "labs", "media", "airlines", "motors",
	"university", "institute", "ministry", "department", "agency",
	"commission", "authority", "association", "fund", "exchange",
}

var knownLocations = map[string]struct{}{
	"new york": {}, "london": {}, "tokyo": {}, "paris": {}, "berlin": {},
	"beijing": {}, "shanghai": {}, "hong kong": {}, "singapore": {},
	"washington": {}, "brussels": {}, "moscow": {}, "dubai": {},
	"san francisco": {}, "los angeles": {}, "chicago": {}, "boston": {},
	"seattle": {}, "frankfurt": {}, "zurich": {}, "geneva": {}, "sydney": {},
	"mumbai": {}, "delhi": {}, "seoul": {}, "toronto": {},
	"united states": {}, "united kingdom": {}, "china": {}, "japan": {},
	"germany": {}, "france": {}, "india": {}, "brazil": {}, "russia": {},
	"canada": {}, "australia": {}, "europe": {}, "asia": {},
}

// Common sentence-initial words that the capitalization heuristic would
// otherwise promote to entities.
var properNoise = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "this": {}, "that": {}, "these": {},
	"it": {}, "its": {}, "in": {}, "on": {}, "at": {}, "but": {},
	"and": {}, "after": {}, "before": {}, "when": {}, "while": {},
	"breaking": {}, "exclusive": {}, "update": {}, "updated": {},
	"report": {}, "analysis": {}, "opinion": {}, "live": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

// ExtractEntities pulls typed entities with confidence scores from article
// text using pattern heuristics. Results are deduplicated by
// (lowercased name, type) keeping the highest confidence, capped at maxEntities
// in descending confidence order.
func ExtractEntities(title, content string, maxEntities int) []entity.Entity {
	if maxEntities <= 0 {
		maxEntities = DefaultMaxEntities
	}

	full := title + " " + content
	var found []entity.Entity

	for _, m := range moneyRe.FindAllString(full, -1) {
		found = append(found, entity.Entity{Name: strings.TrimSpace(m), Type: entity.EntityMoney, Confidence: 0.95})
	}
	for _, m := range percentRe.FindAllString(full, -1) {
		found = append(found, entity.Entity{Name: strings.TrimSpace(m), Type: entity.EntityPercent, Confidence: 0.95})
	}
	for _, m := range dateRe.FindAllString(full, -1) {
		found = append(found, entity.Entity{Name: strings.TrimSpace(m), Type: entity.EntityDate, Confidence: 0.9})
	}

	found = append(found, extractTickers(full)...)
	found = append(found, extractProperNouns(full)...)

	return dedupeEntities(found, maxEntities)
}

// extractTickers confirms candidate symbols only when the surrounding text
// carries financial context.
func extractTickers(s string) []entity.Entity {
	matches := tickerRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	lower := strings.ToLower(s)
	hasContext := false
	for _, w := range financialContextWords {
		if strings.Contains(lower, w) {
			hasContext = true
			break
		}
	}
	if !hasContext {
		return nil
	}

	var out []entity.Entity
	for _, m := range matches {
		symbol := m[1]
		// Exchange-prefixed symbols are near-certain; bare ones are only
		// plausible.
		confidence := 0.6
		if strings.Contains(m[0], ":") {
			confidence = 0.9
		}
		out = append(out, entity.Entity{Name: symbol, Type: entity.EntityTicker, Confidence: confidence})
	}
	return out
}

// extractProperNouns classifies capitalized word runs as organizations,
// locations or persons.
func extractProperNouns(s string) []entity.Entity {
	var out []entity.Entity
	for _, m := range properRe.FindAllString(s, -1) {
		name := strings.TrimSpace(m)
		lower := strings.ToLower(name)

		if _, noise := properNoise[lower]; noise {
			continue
		}

		if _, ok := knownLocations[lower]; ok {
			out = append(out, entity.Entity{Name: name, Type: entity.EntityLocation, Confidence: 0.85})
			continue
		}

		if hasOrgSuffix(lower) {
			out = append(out, entity.Entity{Name: name, Type: entity.EntityOrganization, Confidence: 0.9})
			continue
		}

		words := strings.Fields(name)
		switch {
		case len(words) >= 2 && len(words) <= 3:
			// Multi-word capitalized runs without an org suffix are most
			// often person names in news text.
			out = append(out, entity.Entity{Name: name, Type: entity.EntityPerson, Confidence: 0.7})
		case len(words) == 1 && len(name) >= 3:
			out = append(out, entity.Entity{Name: name, Type: entity.EntityOrganization, Confidence: 0.5})
		}
	}
	return out
}

func hasOrgSuffix(lower string) bool {
	words := strings.Fields(lower)
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	for _, suffix := range orgSuffixes {
		if last == suffix {
			return true
		}
	}
	return false
}

// dedupeEntities keeps the highest-confidence entry per (name_lower, type)
// and returns at most max entities in descending confidence order.
func dedupeEntities(entities []entity.Entity, max int) []entity.Entity {
	type key struct {
		name string
		typ  entity.EntityType
	}

	best := make(map[key]entity.Entity, len(entities))
	for _, e := range entities {
		k := key{name: strings.ToLower(e.Name), typ: e.Type}
		if cur, ok := best[k]; !ok || e.Confidence > cur.Confidence {
			best[k] = e
		}
	}

	out := make([]entity.Entity, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})

	if len(out) > max {
		out = out[:max]
	}
	return out
}
