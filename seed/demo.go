// Package seed builds the demo catalog loaded into an empty database.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/store"
)

// ProductCount is the catalog size, core products included.
const ProductCount = 200

var friendNames = []string{
	"Ava Patel", "Liam Ortega", "Maya Chen", "Sofia Rossi", "Jordan Blake",
	"Noah Park", "Amelia Brooks", "Ethan Rivera", "Harper Lee", "Lucas Kim",
	"Isla Morgan", "Mateo Silva", "Aria Bennett", "Henry Walker", "Zoe Foster",
	"Oliver Quinn", "Ella Hughes", "Leo Singh", "Camila Torres", "Caleb Nguyen",
}

// coreProducts are always present so the sample queries have a clear winner.
var coreProducts = []store.Product{
	{Name: "Eden Skin Serum", Brand: "Velvet Labs", Category: "Beauty", Price: "62.00",
		Description: "Hydrating serum with peptides, niacinamide, and ceramides for a luminous glow."},
	{Name: "Lumen Smart Desk Lamp", Brand: "Lumen", Category: "Home", Price: "89.00",
		Description: "Adaptive desk lamp with circadian presets, wireless charging, and matte brass finish."},
	{Name: "Nimbus Noise-Canceling Headphones", Brand: "Aurora Audio", Category: "Electronics", Price: "249.00",
		Description: "Immersive over-ear headphones with adaptive ANC and 36-hour battery life."},
	{Name: "Atlas Carry-On", Brand: "Atlas Travel", Category: "Travel", Price: "215.00",
		Description: "Expandable carry-on with silent glide wheels, hard shell, and smart packing cubes."},
}

// categories keeps a fixed order so generation is reproducible.
var categories = []struct {
	name  string
	items []string
}{
	{"Beauty", []string{"serum", "cleanser", "mask", "body oil", "toner", "lip balm"}},
	{"Home", []string{"lamp", "throw", "diffuser", "desk organizer", "air purifier", "coffee maker"}},
	{"Electronics", []string{"headphones", "smartwatch", "speaker", "camera", "tablet", "earbuds"}},
	{"Travel", []string{"carry-on", "weekender", "packing cubes", "neck pillow", "travel kit"}},
	{"Fitness", []string{"yoga mat", "resistance set", "water bottle", "foam roller", "training shoes"}},
	{"Fashion", []string{"sneakers", "jacket", "tote bag", "denim", "sweater", "scarf"}},
}

var brands = []string{
	"Luna & Co", "Brightline", "Everlane Studio", "Verve", "Northwind", "Solace",
	"Citrine", "Aster", "Marina", "Studio 8", "Viva", "Oasis",
}

var prefixes = []string{"Aura", "Pulse", "Nova", "Echo", "Glow", "Summit"}

var phrases = []string{
	"Designed for modern routines with premium materials and thoughtful details.",
	"Soft-touch finish and lightweight profile keep it easy to use every day.",
	"Built to feel luxurious with clean lines and a calming aesthetic.",
	"Pairs effortless style with practical functionality for daily life.",
}

// Demo returns the demo catalog with event times relative to now. The same now
// always yields the same catalog.
func Demo(now time.Time) store.Catalog {
	rng := rand.New(rand.NewPCG(42, 42))
	title := cases.Title(language.English)

	var c store.Catalog
	for i, name := range friendNames {
		id := int64(i + 1)
		c.Friends = append(c.Friends, store.Friend{
			ID:        id,
			Name:      name,
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/100?img=%d", id),
			Strength:  roundCents(0.45 + rng.Float64()*(0.98-0.45)),
		})
	}

	for _, p := range coreProducts {
		p.ID = int64(len(c.Products) + 1)
		c.Products = append(c.Products, p)
	}
	for len(c.Products) < ProductCount {
		cat := categories[rng.IntN(len(categories))]
		item := cat.items[rng.IntN(len(cat.items))]
		c.Products = append(c.Products, store.Product{
			ID:       int64(len(c.Products) + 1),
			Name:     prefixes[rng.IntN(len(prefixes))] + " " + title.String(item),
			Brand:    brands[rng.IntN(len(brands))],
			Category: cat.name,
			Price:    fmt.Sprintf("%.2f", 28+rng.Float64()*(320-28)),
			Description: fmt.Sprintf("A %s tailored for %s lovers. %s",
				item, strings.ToLower(cat.name), phrases[rng.IntN(len(phrases))]),
		})
	}

	day := 24 * time.Hour
	for _, f := range c.Friends {
		for _, kind := range []struct {
			t        ranking.EventType
			min, max int
		}{{ranking.EventPurchase, 10, 25}, {ranking.EventView, 15, 40}} {
			n := kind.min + rng.IntN(kind.max-kind.min+1)
			for _, idx := range rng.Perm(len(c.Products))[:n] {
				c.Events = append(c.Events, store.NewEvent{
					FriendID:  f.ID,
					ProductID: c.Products[idx].ID,
					EventType: kind.t,
					At:        now.Add(-time.Duration(rng.IntN(41)) * day),
				})
			}
		}
	}
	return c
}

// Ensure loads the demo catalog into s unless it already holds friends.
func Ensure(ctx context.Context, s store.Seeder, now time.Time, logger *slog.Logger) error {
	c := Demo(now)
	seeded, err := s.SeedCatalog(ctx, c)
	if err != nil {
		return fmt.Errorf("seed demo catalog: %w", err)
	}
	if !seeded {
		logger.Info("demo catalog already present; skipping seed")
		return nil
	}
	logger.Info("demo catalog seeded",
		"friends", len(c.Friends),
		"products", len(c.Products),
		"events", len(c.Events),
	)
	return nil
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
