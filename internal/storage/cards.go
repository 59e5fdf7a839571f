package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/service"
)

// searchResultLimit caps how many candidates a search returns.
const searchResultLimit = 20

// searchScanLimit caps how many rows are pulled before ranking.
const searchScanLimit = 200

const cardColumns = `id, name, set_code, set_name, number, rarity, image_url, market_price`

// SaveCards upserts catalog cards.
func (s *SQLiteStorage) SaveCards(ctx context.Context, cards []model.Card) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range cards {
		if err := validateCard(&cards[i]); err != nil {
			return fmt.Errorf("card at index %d: %w", i, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				set_code = excluded.set_code,
				set_name = excluded.set_name,
				number = excluded.number,
				rarity = excluded.rarity,
				image_url = excluded.image_url,
				market_price = excluded.market_price
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare card upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, card := range cards {
			if _, err := stmt.ExecContext(ctx,
				card.ID, card.Name, card.SetCode, card.SetName,
				card.Number, card.Rarity, card.ImageURL, nullFloat(card.MarketPrice),
			); err != nil {
				return fmt.Errorf("failed to save card %s: %w", card.ID, err)
			}
		}
		return nil
	})
}

// GetCard retrieves a catalog card by ID.
func (s *SQLiteStorage) GetCard(ctx context.Context, id string) (*model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getCardTx(ctx, s.db, id)
}

func getCardTx(ctx context.Context, q queryable, id string) (*model.Card, error) {
	row := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// SearchCards performs a fuzzy text search over name, set and number.
// Every whitespace separated token must match at least one field.
func (s *SQLiteStorage) SearchCards(ctx context.Context, query string) ([]model.CardCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < service.MinSearchQueryLength {
		return nil, nil
	}

	tokens := strings.Fields(query)
	clauses := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)*4+1)
	for _, token := range tokens {
		pattern := "%" + escapeLike(token) + "%"
		clauses = append(clauses, `(name LIKE ? ESCAPE '\' OR set_code LIKE ? ESCAPE '\' OR set_name LIKE ? ESCAPE '\' OR number LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	args = append(args, searchScanLimit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY name COLLATE NOCASE
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.CardCandidate
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		candidates = append(candidates, model.CardCandidate{
			Card:  card,
			Score: scoreCard(card, query, tokens),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Card.Label() < candidates[j].Card.Label()
	})

	if len(candidates) > searchResultLimit {
		candidates = candidates[:searchResultLimit]
	}
	return candidates, nil
}

// scoreCard ranks a matching card between 0 and 1.
func scoreCard(card model.Card, query string, tokens []string) float64 {
	name := strings.ToLower(card.Name)
	q := strings.ToLower(query)

	var score float64
	switch {
	case name == q:
		score = 1.0
	case strings.HasPrefix(name, q):
		score = 0.85
	case strings.Contains(name, q):
		score = 0.7
	default:
		score = 0.5
	}

	number := strings.ToLower(card.Number)
	shortNumber, _, _ := strings.Cut(number, "/")
	setCode := strings.ToLower(card.SetCode)
	for _, token := range tokens {
		t := strings.ToLower(token)
		if t == number || t == shortNumber {
			score += 0.1
		}
		if t == setCode {
			score += 0.05
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (model.Card, error) {
	var (
		card  model.Card
		price sql.NullFloat64
	)
	err := row.Scan(
		&card.ID,
		&card.Name,
		&card.SetCode,
		&card.SetName,
		&card.Number,
		&card.Rarity,
		&card.ImageURL,
		&price,
	)
	if err != nil {
		return model.Card{}, err
	}
	if price.Valid {
		v := price.Float64
		card.MarketPrice = &v
	}
	return card, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
