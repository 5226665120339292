package ranking

import (
	"strings"
	"time"

	"github.com/doujins-org/recokit/internal/textnormalize"
)

const (
	purchaseWeight = 1.0
	viewWeight     = 0.6

	fullQueryBoost    = 1.0
	partialQueryBoost = 0.6

	secondsPerDay = 86400.0
)

// Recency is 1/(1+ageDays). Events stamped after now count as age 0.
func Recency(eventAt, now time.Time) float64 {
	age := now.Sub(eventAt).Seconds() / secondsPerDay
	if age < 0 {
		age = 0
	}
	return 1 / (1 + age)
}

// EventWeight scores purchases above views. Unknown kinds weigh as views.
func EventWeight(t EventType) float64 {
	if t == EventPurchase {
		return purchaseWeight
	}
	return viewWeight
}

// LexicalBoost is 1 when the whole query occurs in "{name} {description}",
// 0.6 when any query token does, and 0 otherwise or when the query has no tokens.
func LexicalBoost(query, name, description string) float64 {
	tokens := textnormalize.Tokens(query)
	if len(tokens) == 0 {
		return 0
	}
	haystack := strings.ToLower(name + " " + description)
	if strings.Contains(haystack, strings.ToLower(strings.TrimSpace(query))) {
		return fullQueryBoost
	}
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			return partialQueryBoost
		}
	}
	return 0
}

// Keywords returns the query tokens, in query order, that are whole tokens of
// "{name} {description}".
func Keywords(query, name, description string) []string {
	out := []string{}
	tokens := textnormalize.Tokens(query)
	if len(tokens) == 0 {
		return out
	}
	have := textnormalize.TokenSet(name + " " + description)
	for _, t := range tokens {
		if _, ok := have[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Reason is the one-line explanation shown with a recommendation.
func Reason(friendName string, t EventType, productName string) string {
	verb := "viewed"
	if t == EventPurchase {
		verb = "bought"
	}
	return "Because " + friendName + " " + verb + " " + productName
}

// newCandidate derives every query-independent signal plus the lexical ones.
// Similarity is attached by the caller.
func newCandidate(o Observation, query string, now time.Time) Candidate {
	return Candidate{
		ProductID:      o.ProductID,
		Name:           o.Name,
		Brand:          o.Brand,
		Category:       o.Category,
		Price:          o.Price,
		Description:    o.Description,
		FriendName:     o.FriendName,
		FriendAvatar:   o.FriendAvatar,
		EventType:      o.EventType,
		EventAt:        o.EventAt,
		Reason:         Reason(o.FriendName, o.EventType, o.Name),
		FriendStrength: o.FriendStrength,
		Recency:        Recency(o.EventAt, now),
		EventWeight:    EventWeight(o.EventType),
		LexicalBoost:   LexicalBoost(query, o.Name, o.Description),
		Keywords:       Keywords(query, o.Name, o.Description),
	}
}
