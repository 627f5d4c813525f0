package repository

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

// Coordinates and screenwriter rows belong to exactly one movie. They are
// written alongside it and removed when it is deleted.

func insertCoordinates(ctx context.Context, q queryer, c *domain.Coordinates) (*int64, error) {
	if c == nil {
		return nil, nil
	}
	var id int64
	err := q.QueryRow(ctx, `INSERT INTO coordinates (x, y) VALUES ($1, $2) RETURNING id`, c.X, c.Y).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert coordinates: %w", err)
	}
	return &id, nil
}

func upsertCoordinates(ctx context.Context, q queryer, id *int64, c *domain.Coordinates) (*int64, error) {
	if id == nil {
		return insertCoordinates(ctx, q, c)
	}
	if _, err := q.Exec(ctx, `UPDATE coordinates SET x = $2, y = $3 WHERE id = $1`, *id, c.X, c.Y); err != nil {
		return nil, fmt.Errorf("update coordinates: %w", err)
	}
	return id, nil
}

func insertPerson(ctx context.Context, q queryer, p *domain.Person) (*int64, error) {
	if p == nil {
		return nil, nil
	}
	const query = `
        INSERT INTO persons (name, birthday, height, weight, passport_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id
    `
	var id int64
	if err := q.QueryRow(ctx, query, p.Name, p.Birthday, p.Height, p.Weight, p.PassportID).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return &id, nil
}

func upsertPerson(ctx context.Context, q queryer, id *int64, p *domain.Person) (*int64, error) {
	if id == nil {
		return insertPerson(ctx, q, p)
	}
	const query = `
        UPDATE persons
        SET name = $2, birthday = $3, height = $4, weight = $5, passport_id = $6
        WHERE id = $1
    `
	if _, err := q.Exec(ctx, query, *id, p.Name, p.Birthday, p.Height, p.Weight, p.PassportID); err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}
	return id, nil
}

func deleteOwned(ctx context.Context, q queryer, coordinateIDs, personIDs []int64) error {
	if len(coordinateIDs) > 0 {
		if _, err := q.Exec(ctx, `DELETE FROM coordinates WHERE id = ANY($1)`, coordinateIDs); err != nil {
			return fmt.Errorf("delete coordinates: %w", err)
		}
	}
	if len(personIDs) > 0 {
		if _, err := q.Exec(ctx, `DELETE FROM persons WHERE id = ANY($1)`, personIDs); err != nil {
			return fmt.Errorf("delete persons: %w", err)
		}
	}
	return nil
}
