package user

import (
	"context"
	"fmt"
	"strings"
)

// Demo record source data. Names and streets are deliberately Swedish
// to make the demo directory look like real data.
var (
	seedFirstNames = []string{
		"Kajsa", "Kalle", "Anna", "Erik", "Maria", "Lars", "Karin",
		"Anders", "Eva", "Johan", "Birgitta", "Per", "Elisabeth",
		"Nils", "Ingrid", "Jan", "Kerstin", "Olof", "Margareta", "Åke",
	}
	seedLastNames = []string{
		"Anka", "Andersson", "Johansson", "Karlsson", "Nilsson",
		"Eriksson", "Larsson", "Olsson", "Persson", "Svensson",
		"Gustafsson", "Pettersson", "Jonsson", "Jansson", "Hansson",
	}
	seedStreets = []string{
		"Vägen", "Storgatan", "Kungsgatan", "Drottninggatan",
		"Skolgatan", "Kyrkogatan", "Parkvägen", "Strandvägen",
	}
	seedCities = []string{
		"Staden", "Stockholm", "Göteborg", "Malmö", "Uppsala",
		"Västerås", "Örebro", "Linköping",
	}
)

// Seed fills an empty repository with count generated demo records.
// It is a no-op when the repository already holds records, so restarts
// of a durable deployment do not duplicate data.
func Seed(ctx context.Context, repo Repository, count int) (int, error) {
	existing, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking for existing records: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	created := 0
	for i := 0; i < count; i++ {
		u := generateUser(i)
		if err := repo.Create(ctx, u); err != nil {
			return created, fmt.Errorf("seeding user %d: %w", i+1, err)
		}
		created++
	}
	return created, nil
}

// generateUser builds the i-th demo record. Index-driven selection
// keeps the output deterministic; the index in the email local part
// keeps email addresses unique across the whole set.
func generateUser(i int) *User {
	first := seedFirstNames[i%len(seedFirstNames)]
	last := seedLastNames[(i/len(seedFirstNames)+i)%len(seedLastNames)]
	street := seedStreets[i%len(seedStreets)]
	city := seedCities[i%len(seedCities)]

	return &User{
		Name:      first + " " + last,
		Address:   fmt.Sprintf("%s %d, %d %s", street, 1+i%99, 10000+i*37%90000, city),
		Email:     fmt.Sprintf("%s.%s.%d@example.org", emailLocal(first), emailLocal(last), i+1),
		Telephone: fmt.Sprintf("070-%07d", 100000+i*613),
	}
}

// emailLocal lowercases a name part and folds Swedish letters to ASCII
// so the generated address stays plain-ASCII.
func emailLocal(s string) string {
	s = strings.ToLower(s)
	replacer := strings.NewReplacer("å", "a", "ä", "a", "ö", "o", "é", "e")
	return replacer.Replace(s)
}
