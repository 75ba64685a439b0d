package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chefatlas/atlas-cli/internal/model"
)

const (
	metaSystemPrompt = "You write search prompts for a web-connected research assistant. " +
		"Respond with the prompt text only, no preamble and no commentary."

	compareSystemPrompt = "You compare two records describing the same restaurant. " +
		"Respond with a single word: CONFLICT if they meaningfully contradict each other, OK otherwise."

	coerceSystemPrompt = "You convert free text into strict JSON. " +
		"Respond with the JSON only, no commentary."
)

// MetaPrompt asks the reasoning provider to generate a research prompt for
// the data-fetch provider, constrained to a JSON object whose keys are
// exactly the stale field names.
func MetaPrompt(r *model.Restaurant, chefName string, fields []model.Field) string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = string(f)
	}

	var b strings.Builder
	b.WriteString("Write a research prompt for a web-connected assistant to find current facts about the restaurant ")
	fmt.Fprintf(&b, "%q", r.Name)
	if chefName != "" {
		fmt.Fprintf(&b, " run by chef %q", chefName)
	}
	fmt.Fprintf(&b, " in %s, %s.", r.City, r.Country)
	b.WriteString(" The prompt must instruct the assistant to answer ONLY with a JSON object with exactly these keys: ")
	b.WriteString(strings.Join(keys, ", "))
	b.WriteString(". Each value must be a string, or null when the fact cannot be verified. No other text.")
	return b.String()
}

// FetchInstruction is the system prompt used when forwarding the synthesized
// prompt to the data-fetch provider.
const FetchInstruction = "Answer only with the requested JSON object. Use null for values you cannot verify."

// ComparisonPrompt asks for a single-token verdict on whether fresh data
// contradicts the existing record.
func ComparisonPrompt(existing, fresh any) (string, error) {
	existingJSON, err := json.Marshal(existing)
	if err != nil {
		return "", err
	}
	freshJSON, err := json.Marshal(fresh)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Existing record:\n%s\n\nFresh data:\n%s\n\nDo these meaningfully conflict? Answer CONFLICT or OK.",
		existingJSON, freshJSON,
	), nil
}

// FullProfilePrompt requests a complete replacement profile after a conflict
// verdict.
func FullProfilePrompt(r *model.Restaurant, chefName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research the restaurant %q", r.Name)
	if chefName != "" {
		fmt.Fprintf(&b, " associated with chef %q", chefName)
	}
	fmt.Fprintf(&b, " in %s, %s.", r.City, r.Country)
	b.WriteString(" Answer ONLY with a JSON object with exactly these keys: restaurantName, address, currentChefName, bio, status.")
	b.WriteString(" Each value must be a string, or null when the fact cannot be verified.")
	return b.String()
}

// RosterPrompt asks the data-fetch provider for a free-text roster of a
// season's contestants.
func RosterPrompt(country string, seasonNumber int) string {
	return fmt.Sprintf(
		"List the contestants of Top Chef %s season %d. For each contestant give their full name, "+
			"a short biography, their current professional status, and their final placement in the season.",
		country, seasonNumber,
	)
}

// CoercePrompt asks the reasoning provider to turn a free-text roster into a
// strict JSON array.
func CoercePrompt(rosterText string) string {
	return "Convert the following contestant roster into a JSON array. Each element must be an object with " +
		"keys: name (string), bio (string or null), status (string or null), placement (integer or null), " +
		"isWinner (boolean). Answer with the JSON array only.\n\n" + rosterText
}

// ChefInfoPrompt requests a free-text biography for the chef-info endpoint.
func ChefInfoPrompt(chefName, restaurantName string) string {
	if restaurantName != "" {
		return fmt.Sprintf("Write a short factual biography of the chef %s, owner of the restaurant %s. "+
			"Cover their culinary background, notable achievements, and current activity.", chefName, restaurantName)
	}
	return fmt.Sprintf("Write a short factual biography of the chef %s. "+
		"Cover their culinary background, notable achievements, and current activity.", chefName)
}

// FillMissingPrompt requests values for a restaurant's null columns in one
// round trip.
func FillMissingPrompt(r *model.Restaurant, missing []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research the restaurant %q in %s, %s.", r.Name, r.City, r.Country)
	b.WriteString(" Answer ONLY with a JSON object with exactly these keys: ")
	b.WriteString(strings.Join(missing, ", "))
	b.WriteString(". Each value must be a string, or null when the fact cannot be verified.")
	return b.String()
}
